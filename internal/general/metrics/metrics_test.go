package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.BookingCreated("CONFIRMED")
	m.BookingCreated("CONFIRMED")
	m.SeatOperation("reserve", ResultRejected)
	m.ReleaseClamped()
	m.Transition("PENDING", "CONFIRMED", ResultOK)
	m.RatingUpdated()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsCreated.WithLabelValues("CONFIRMED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.seatOperations.WithLabelValues("reserve", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.releaseClamped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("PENDING", "CONFIRMED", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ratingUpdates))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rides/{ride_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rides/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration, "carpool_http_request_duration_seconds"))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ReleaseClamped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "carpool_seat_release_clamped_total 1")
}
