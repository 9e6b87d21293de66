package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carpool/internal/domain/ride"
	"carpool/internal/general/jwt"
	"carpool/internal/general/logger"
	"carpool/internal/general/memstore"
	"carpool/internal/general/metrics"
	"carpool/internal/ports"
	"carpool/internal/software/booking/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t   *testing.T
	mux *http.ServeMux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memstore.New()
	svc := service.NewReservationService(
		logger.Nop(),
		metrics.New(),
		memstore.NewUnitOfWork(store),
		memstore.NewRideRepo(store),
		memstore.NewBookingRepo(store),
		memstore.NewUserRepo(store),
		memstore.NewEventRepo(store),
		nil,
		nil,
	)
	return newTestServerWith(t, svc)
}

func newTestServerWith(t *testing.T, svc ports.ReservationService) *testServer {
	mux := http.NewServeMux()
	NewBookingHTTPHandler(svc, logger.Nop(), jwt.NewManager("test-secret", time.Hour)).RegisterRoutes(mux)
	return &testServer{t: t, mux: mux}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// register creates a user and returns its id and a token.
func (s *testServer) register(name, email, role string) (string, string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/users", "", map[string]string{"name": name, "email": email, "role": role})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	u := decode[userResponse](s.t, rec)

	rec = s.do(http.MethodPost, "/tokens", "", map[string]string{"user_id": u.ID})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	tok := decode[TokenResponse](s.t, rec)
	assert.Equal(s.t, role, tok.Role.String())
	return u.ID, tok.Token
}

func (s *testServer) createRide(token string, capacity int, instant bool) rideResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/rides", token, map[string]any{
		"from":            "Almaty",
		"to":              "Bishkek",
		"departure_at":    time.Now().Add(48 * time.Hour).UTC(),
		"capacity":        capacity,
		"price_per_seat":  15,
		"instant_booking": instant,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[rideResponse](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	driverID, driverTok := s.register("Dana", "dana@example.com", "DRIVER")
	passengerID, passengerTok := s.register("Pavel", "pavel@example.com", "PASSENGER")
	_, otherTok := s.register("Olga", "olga@example.com", "PASSENGER")

	rd := s.createRide(driverTok, 3, true)
	assert.Equal(t, driverID, rd.DriverID)
	assert.Equal(t, 3, rd.SeatsAvailable)
	assert.True(t, rd.AllowFood)
	assert.False(t, rd.AllowPets)

	// passengers cannot offer rides
	rec := s.do(http.MethodPost, "/rides", passengerTok, map[string]any{
		"from": "A", "to": "B", "departure_at": time.Now().Add(time.Hour).UTC(), "capacity": 1, "price_per_seat": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/bookings", passengerTok, map[string]any{"ride_id": rd.ID, "seats_requested": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[bookingResponse](t, rec)
	assert.Equal(t, "CONFIRMED", b.Status)
	assert.Equal(t, passengerID, b.PassengerID)
	assert.Equal(t, 30.0, b.TotalAmount)

	rec = s.do(http.MethodPost, "/bookings", otherTok, map[string]any{"ride_id": rd.ID, "seats_requested": 2})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INSUFFICIENT_CAPACITY", decode[errorBody](t, rec).Code)

	rec = s.do(http.MethodGet, "/rides/"+rd.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[rideResponse](t, rec).SeatsAvailable)

	rec = s.do(http.MethodGet, "/passengers/"+passengerID+"/bookings", passengerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookingResponse](t, rec), 1)

	rec = s.do(http.MethodGet, "/passengers/"+passengerID+"/bookings", otherTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/bookings/"+b.ID, otherTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/bookings/"+b.ID, driverTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/bookings/"+b.ID+"/status", otherTok, map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/bookings/"+b.ID+"/status", passengerTok, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CANCELLED", decode[bookingResponse](t, rec).Status)

	rec = s.do(http.MethodGet, "/drivers/"+driverID+"/rides", driverTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rides := decode[[]rideWithStatsResponse](t, rec)
	require.Len(t, rides, 1)
	assert.Equal(t, 3, rides[0].SeatsAvailable)
	assert.Equal(t, 1, rides[0].Stats.BookingsCount)

	rec = s.do(http.MethodGet, "/rides/"+rd.ID+"/bookings", driverTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]bookingResponse](t, rec), 1)

	rec = s.do(http.MethodDelete, "/rides/"+rd.ID, driverTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRideStatusAndDelete(t *testing.T) {
	s := newTestServer(t)
	_, driverTok := s.register("Dana", "dana@example.com", "DRIVER")
	_, passengerTok := s.register("Pavel", "pavel@example.com", "PASSENGER")

	rd := s.createRide(driverTok, 2, false)

	rec := s.do(http.MethodPut, "/rides/"+rd.ID+"/status", passengerTok, map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/rides/"+rd.ID+"/status", driverTok, map[string]string{"status": "PAUSED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/rides/"+rd.ID+"/status", driverTok, map[string]string{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, ride.StatusCancelled.String(), decode[rideResponse](t, rec).Status)

	rec = s.do(http.MethodPut, "/rides/"+rd.ID+"/status", driverTok, map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/rides/"+rd.ID, driverTok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/rides/"+rd.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchAndList(t *testing.T) {
	s := newTestServer(t)
	_, driverTok := s.register("Dana", "dana@example.com", "DRIVER")
	rd := s.createRide(driverTok, 2, true)

	rec := s.do(http.MethodGet, "/rides", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]rideResponse](t, rec), 1)

	day := rd.DepartureAt.Format(time.DateOnly)
	rec = s.do(http.MethodGet, "/rides/search?from=alm&to=bish&date="+day, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]rideResponse](t, rec), 1)

	rec = s.do(http.MethodGet, "/rides/search?to=Tashkent", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]rideResponse](t, rec))

	rec = s.do(http.MethodGet, "/rides/search?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatings(t *testing.T) {
	s := newTestServer(t)
	driverID, driverTok := s.register("Dana", "dana@example.com", "DRIVER")
	passengerID, passengerTok := s.register("Pavel", "pavel@example.com", "PASSENGER")

	rec := s.do(http.MethodPost, "/users/"+driverID+"/ratings", passengerTok, map[string]float64{"rating": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[userResponse](t, rec)
	assert.Equal(t, 4.0, u.Rating)
	assert.Equal(t, 1, u.TotalTrips)

	rec = s.do(http.MethodPost, "/users/"+driverID+"/ratings", passengerTok, map[string]float64{"rating": 7})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RATING", decode[errorBody](t, rec).Code)

	rec = s.do(http.MethodPost, "/users/"+passengerID+"/ratings", passengerTok, map[string]float64{"rating": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/users/"+driverID, driverTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, decode[userResponse](t, rec).Rating)
}

func TestAuthAndValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/bookings", "", map[string]any{"ride_id": "x", "seats_requested": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/bookings", "not-a-jwt", map[string]any{"ride_id": "x", "seats_requested": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/users", "", map[string]string{"name": "", "email": "nope", "role": "DRIVER"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Len(t, body.Details, 2)

	rec = s.do(http.MethodPost, "/users", "", map[string]string{"name": "A", "email": "a@example.com", "role": "PILOT"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/users", "", map[string]any{"name": "A", "email": "a@example.com", "role": "DRIVER", "age": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`name=A`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)

	rec = s.do(http.MethodPost, "/tokens", "", map[string]string{"user_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, driverTok := s.register("Dana", "dana@example.com", "DRIVER")
	rec = s.do(http.MethodPost, "/rides", driverTok, map[string]any{
		"from": "A", "to": "B", "departure_at": time.Now().Add(time.Hour).UTC(), "capacity": 0, "price_per_seat": 10,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SEAT_COUNT", decode[errorBody](t, rec).Code)

	rec = s.do(http.MethodPost, "/users", "", map[string]string{"name": "Dup", "email": "dana@example.com", "role": "DRIVER"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateRideRejectsAmountsBeyondStorage(t *testing.T) {
	s := newTestServer(t)
	_, driverTok := s.register("Dana", "dana@example.com", "DRIVER")

	rec := s.do(http.MethodPost, "/rides", driverTok, map[string]any{
		"from": "A", "to": "B", "departure_at": time.Now().Add(time.Hour).UTC(),
		"capacity": 2147483647, "price_per_seat": 1e12,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.ElementsMatch(t, []errorDetail{
		{Field: "Capacity", Message: "must be at most 100"},
		{Field: "PricePerSeat", Message: "must be at most 100000"},
	}, body.Details)

	rec = s.do(http.MethodPost, "/rides", driverTok, map[string]any{
		"from": "A", "to": "B", "departure_at": time.Now().Add(time.Hour).UTC(),
		"capacity": 100, "price_per_seat": 100000,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRequestIDIsUUIDUnlessSupplied(t *testing.T) {
	h := NewBookingHTTPHandler(nil, logger.Nop(), jwt.NewManager("test-secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	id := logger.RequestID(h.withReqID(context.Background(), req))
	_, err := uuid.Parse(id)
	assert.NoError(t, err, id)

	req.Header.Set("X-Request-ID", "req-42")
	assert.Equal(t, "req-42", logger.RequestID(h.withReqID(context.Background(), req)))
}

// brokenService fails every ride read with an infrastructure error.
type brokenService struct {
	ports.ReservationService
}

func (brokenService) GetRide(context.Context, string) (*ride.Ride, error) {
	return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
}

func TestInfrastructureErrorsAreNotLeaked(t *testing.T) {
	s := newTestServerWith(t, brokenService{})

	rec := s.do(http.MethodGet, "/rides/abc", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decode[errorBody](t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
