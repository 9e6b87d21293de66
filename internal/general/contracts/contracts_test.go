package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekBookingMessage(t *testing.T) {
	body, err := json.Marshal(BookingStatusMessage{
		Kind:      KindBookingStatus,
		BookingID: "b-1",
		RideID:    "r-1",
		Status:    "CONFIRMED",
		Timestamp: time.Now().UTC(),
		Envelope:  Envelope{Producer: "booking-service"},
	})
	require.NoError(t, err)

	kind, rideID, err := Peek(body)
	require.NoError(t, err)
	assert.Equal(t, KindBookingStatus, kind)
	assert.Equal(t, "r-1", rideID)
}

func TestPeekRejectsMessagesWithoutRide(t *testing.T) {
	_, _, err := Peek([]byte(`{"kind":"ride_status"}`))
	assert.Error(t, err)

	_, _, err = Peek([]byte(`not json`))
	assert.Error(t, err)
}

func TestRouteKeys(t *testing.T) {
	assert.Equal(t, "booking.status.CANCELLED", BookingStatusMessage{Status: "CANCELLED"}.RouteKey())
	assert.Equal(t, "ride.status.COMPLETED", RideStatusMessage{Status: "COMPLETED"}.RouteKey())
}
