package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"carpool/internal/domain/ride"
	"carpool/internal/general/jwt"
	"carpool/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

// The upper bounds keep capacity*price_per_seat inside the NUMERIC(10,2) total_amount column.
type createRideRequest struct {
	From           string    `json:"from" validate:"required,max=255"`
	To             string    `json:"to" validate:"required,max=255"`
	DepartureAt    time.Time `json:"departure_at" validate:"required"`
	Stops          string    `json:"stops" validate:"max=1000"`
	Capacity       int       `json:"capacity" validate:"lte=100"`
	PricePerSeat   float64   `json:"price_per_seat" validate:"gt=0,lte=100000"`
	CarModel       string    `json:"car_model" validate:"max=100"`
	CarNumber      string    `json:"car_number" validate:"max=20"`
	AdditionalInfo string    `json:"additional_info" validate:"max=1000"`
	InstantBooking *bool     `json:"instant_booking"`
	AllowSmoking   *bool     `json:"allow_smoking"`
	AllowPets      *bool     `json:"allow_pets"`
	AllowFood      *bool     `json:"allow_food"`
}

// policy applies the request's flags over the defaults.
func (req createRideRequest) policy() ride.Policy {
	p := ride.DefaultPolicy()
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.InstantBooking, req.InstantBooking)
	set(&p.AllowSmoking, req.AllowSmoking)
	set(&p.AllowPets, req.AllowPets)
	set(&p.AllowFood, req.AllowFood)
	return p
}

type updateRideStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ----- Handler: POST /rides -----

func (handler *BookingHTTPHandler) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createRideRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	// bound service call
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.CreateRide(ctx, ports.CreateRideInput{
		DriverID:       jwt.ActorID(r),
		From:           req.From,
		To:             req.To,
		DepartureAt:    req.DepartureAt,
		Stops:          req.Stops,
		Capacity:       req.Capacity,
		PricePerSeat:   req.PricePerSeat,
		CarModel:       req.CarModel,
		CarNumber:      req.CarNumber,
		AdditionalInfo: req.AdditionalInfo,
		Policy:         req.policy(),
	})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusCreated, toRideResponse(res))
}

// ----- Handler: GET /rides -----

func (handler *BookingHTTPHandler) handleListActiveRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	res, err := handler.svc.ListActiveRides(ctx)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toRideResponses(res))
}

// ----- Handler: GET /rides/search?from=&to=&date=YYYY-MM-DD -----

func (handler *BookingHTTPHandler) handleSearchRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	q := r.URL.Query()
	query := ports.RideQuery{
		From: strings.TrimSpace(q.Get("from")),
		To:   strings.TrimSpace(q.Get("to")),
	}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "date must be YYYY-MM-DD", err)
			return
		}
		query.Date = day
	}

	res, err := handler.svc.SearchRides(ctx, query)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toRideResponses(res))
}

// ----- Handler: GET /rides/{ride_id} -----

func (handler *BookingHTTPHandler) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	rideID, ok := handler.pathID(ctx, w, r, "ride_id")
	if !ok {
		return
	}

	res, err := handler.svc.GetRide(handler.logger.WithRideID(ctx, rideID), rideID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toRideResponse(res))
}

// ----- Handler: GET /drivers/{driver_id}/rides -----

func (handler *BookingHTTPHandler) handleListDriverRides(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	driverID, ok := handler.pathID(ctx, w, r, "driver_id")
	if !ok || !handler.requireSelf(ctx, w, r, driverID) {
		return
	}

	res, err := handler.svc.ListRidesByDriver(ctx, driverID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toRideWithStatsResponses(res))
}

// ----- Handler: PUT /rides/{ride_id}/status -----

func (handler *BookingHTTPHandler) handleUpdateRideStatus(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	rideID, ok := handler.pathID(ctx, w, r, "ride_id")
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	var req updateRideStatusRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	status, err := ride.ParseStatus(req.Status)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "status must be one of: ACTIVE, COMPLETED, CANCELLED", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.UpdateRideStatus(ctx, rideID, status, jwt.ActorID(r))
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toRideResponse(res))
}

// ----- Handler: DELETE /rides/{ride_id} -----

func (handler *BookingHTTPHandler) handleDeleteRide(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	rideID, ok := handler.pathID(ctx, w, r, "ride_id")
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := handler.svc.DeleteRide(ctx, rideID, jwt.ActorID(r)); err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- Handler: GET /rides/{ride_id}/bookings -----

func (handler *BookingHTTPHandler) handleListRideBookings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	rideID, ok := handler.pathID(ctx, w, r, "ride_id")
	if !ok {
		return
	}
	ctx = handler.logger.WithRideID(ctx, rideID)

	rd, err := handler.svc.GetRide(ctx, rideID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	if !handler.requireSelf(ctx, w, r, rd.DriverID) {
		return
	}

	res, err := handler.svc.ListBookingsByRide(ctx, rideID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toBookingResponses(res))
}
