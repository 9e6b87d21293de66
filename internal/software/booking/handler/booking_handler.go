package handler

import (
	"context"
	"net/http"

	"carpool/internal/domain/booking"
	"carpool/internal/general/jwt"
	"carpool/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type createBookingRequest struct {
	RideID         string `json:"ride_id" validate:"required"`
	SeatsRequested int    `json:"seats_requested"`
	Message        string `json:"message" validate:"max=500"`
}

type updateBookingStatusRequest struct {
	Status          string   `json:"status" validate:"required"`
	PassengerRating *float64 `json:"passenger_rating,omitempty"`
}

// ----- Handler: POST /bookings -----

func (handler *BookingHTTPHandler) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req createBookingRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	ctx = handler.logger.WithRideID(ctx, req.RideID)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.CreateBooking(ctx, ports.CreateBookingInput{
		RideID:         req.RideID,
		PassengerID:    jwt.ActorID(r),
		SeatsRequested: req.SeatsRequested,
		Message:        req.Message,
	})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusCreated, toBookingResponse(res))
}

// ----- Handler: GET /bookings/{booking_id} -----

func (handler *BookingHTTPHandler) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	bookingID, ok := handler.pathID(ctx, w, r, "booking_id")
	if !ok {
		return
	}
	ctx = handler.logger.WithBookingID(ctx, bookingID)

	res, err := handler.svc.GetBooking(ctx, bookingID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}

	// visible to its passenger and to the ride's driver
	if actor := jwt.ActorID(r); actor != res.PassengerID {
		rd, err := handler.svc.GetRide(ctx, res.RideID)
		if err != nil {
			handler.serviceError(ctx, w, err)
			return
		}
		if !handler.requireSelf(ctx, w, r, rd.DriverID) {
			return
		}
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toBookingResponse(res))
}

// ----- Handler: PUT /bookings/{booking_id}/status -----

func (handler *BookingHTTPHandler) handleUpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	bookingID, ok := handler.pathID(ctx, w, r, "booking_id")
	if !ok {
		return
	}
	ctx = handler.logger.WithBookingID(ctx, bookingID)

	var req updateBookingStatusRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}
	status, err := booking.ParseStatus(req.Status)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest,
			"status must be one of: PENDING, CONFIRMED, REJECTED, CANCELLED, COMPLETED", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := handler.svc.UpdateBookingStatus(ctx, ports.UpdateBookingStatusInput{
		BookingID:       bookingID,
		Status:          status,
		ActorID:         jwt.ActorID(r),
		PassengerRating: req.PassengerRating,
	})
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toBookingResponse(res))
}

// ----- Handler: GET /passengers/{passenger_id}/bookings -----

func (handler *BookingHTTPHandler) handleListPassengerBookings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	passengerID, ok := handler.pathID(ctx, w, r, "passenger_id")
	if !ok || !handler.requireSelf(ctx, w, r, passengerID) {
		return
	}

	res, err := handler.svc.ListBookingsByPassenger(ctx, passengerID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toBookingResponses(res))
}

// ----- Handler: GET /drivers/{driver_id}/bookings -----

func (handler *BookingHTTPHandler) handleListDriverBookings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	driverID, ok := handler.pathID(ctx, w, r, "driver_id")
	if !ok || !handler.requireSelf(ctx, w, r, driverID) {
		return
	}

	res, err := handler.svc.ListBookingsForDriver(ctx, driverID)
	if err != nil {
		handler.serviceError(ctx, w, err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, toBookingResponses(res))
}
