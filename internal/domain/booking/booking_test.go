package booking

import (
	"testing"
	"time"

	"carpool/internal/domain/ride"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func testRide(t *testing.T, capacity int) *ride.Ride {
	t.Helper()
	r, err := ride.NewRide("driver-1", ride.Details{
		From:         "Almaty",
		To:           "Bishkek",
		DepartureAt:  testNow.Add(6 * time.Hour),
		Capacity:     capacity,
		PricePerSeat: 7.25,
		Policy:       ride.DefaultPolicy(),
	}, testNow)
	require.NoError(t, err)
	r.ID = "ride-1"
	return r
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusRejected}:    true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCancelled}: true,
		{StatusConfirmed, StatusCompleted}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
}

func TestPlanAuthorization(t *testing.T) {
	cases := []struct {
		name  string
		from  Status
		to    Status
		actor Actor
		want  error
		eff   Effect
	}{
		{"driver confirms", StatusPending, StatusConfirmed, ActorDriver, nil, EffectReserve},
		{"instant confirm", StatusPending, StatusConfirmed, ActorSystem, nil, EffectReserve},
		{"passenger cannot confirm", StatusPending, StatusConfirmed, ActorPassenger, ErrForbidden, EffectNone},
		{"driver rejects", StatusPending, StatusRejected, ActorDriver, nil, EffectNone},
		{"passenger cannot reject", StatusPending, StatusRejected, ActorPassenger, ErrForbidden, EffectNone},
		{"passenger withdraws", StatusPending, StatusCancelled, ActorPassenger, nil, EffectNone},
		{"driver cannot cancel pending", StatusPending, StatusCancelled, ActorDriver, ErrForbidden, EffectNone},
		{"driver cancels confirmed", StatusConfirmed, StatusCancelled, ActorDriver, nil, EffectRelease},
		{"passenger cancels confirmed", StatusConfirmed, StatusCancelled, ActorPassenger, nil, EffectRelease},
		{"driver completes", StatusConfirmed, StatusCompleted, ActorDriver, nil, EffectComplete},
		{"passenger cannot complete", StatusConfirmed, StatusCompleted, ActorPassenger, ErrForbidden, EffectNone},
		{"rejected stays rejected", StatusRejected, StatusConfirmed, ActorDriver, ErrInvalidTransition, EffectNone},
		{"same status", StatusConfirmed, StatusConfirmed, ActorDriver, ErrInvalidTransition, EffectNone},
		{"pending cannot complete", StatusPending, StatusCompleted, ActorDriver, ErrInvalidTransition, EffectNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &Booking{Status: tc.from}
			rule, err := b.Plan(tc.to, tc.actor)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.eff, rule.Effect)
		})
	}
}

func TestNewBooking(t *testing.T) {
	r := testRide(t, 3)

	b, err := NewBooking(r, "passenger-1", 2, "  see you  ", testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, 14.5, b.TotalAmount)
	assert.Equal(t, "see you", b.Message)
	assert.Equal(t, r.ID, b.RideID)

	_, err = NewBooking(r, r.DriverID, 1, "", testNow)
	assert.ErrorIs(t, err, ErrSelfBookingNotAllowed)

	_, err = NewBooking(r, "passenger-1", 0, "", testNow)
	assert.ErrorIs(t, err, ride.ErrInvalidSeatCount)

	_, err = NewBooking(r, "passenger-1", 4, "", testNow)
	assert.ErrorIs(t, err, ride.ErrInvalidSeatCount)

	r.SeatsAvailable = 1
	_, err = NewBooking(r, "passenger-1", 2, "", testNow)
	assert.ErrorIs(t, err, ride.ErrInsufficientCapacity)

	r.Status = ride.StatusCancelled
	_, err = NewBooking(r, "passenger-1", 1, "", testNow)
	assert.ErrorIs(t, err, ride.ErrRideNotActive)
}

func TestActorFor(t *testing.T) {
	b := &Booking{PassengerID: "p"}

	a, err := b.ActorFor("d", "d")
	require.NoError(t, err)
	assert.Equal(t, ActorDriver, a)

	a, err = b.ActorFor("p", "d")
	require.NoError(t, err)
	assert.Equal(t, ActorPassenger, a)

	_, err = b.ActorFor("stranger", "d")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSummarize(t *testing.T) {
	bs := []*Booking{
		{RideID: "r", Status: StatusConfirmed, SeatsRequested: 2, TotalAmount: 20},
		{RideID: "r", Status: StatusCompleted, SeatsRequested: 1, TotalAmount: 10},
		{RideID: "r", Status: StatusPending, SeatsRequested: 1, TotalAmount: 10},
		{RideID: "r", Status: StatusCancelled, SeatsRequested: 3, TotalAmount: 30},
		{RideID: "other", Status: StatusConfirmed, SeatsRequested: 3, TotalAmount: 30},
	}
	stats := Summarize("r", bs)
	assert.Equal(t, RideStats{RideID: "r", BookingsCount: 4, PendingCount: 1, SeatsBooked: 3, Revenue: 30}, stats)
}
