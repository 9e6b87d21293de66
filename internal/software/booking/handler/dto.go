package handler

import (
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
	"carpool/internal/ports"
)

// --- Response DTOs (HTTP boundary) ---

type rideResponse struct {
	ID             string    `json:"id"`
	DriverID       string    `json:"driver_id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	DepartureAt    time.Time `json:"departure_at"`
	Stops          string    `json:"stops,omitempty"`
	Capacity       int       `json:"capacity"`
	SeatsAvailable int       `json:"seats_available"`
	PricePerSeat   float64   `json:"price_per_seat"`
	CarModel       string    `json:"car_model,omitempty"`
	CarNumber      string    `json:"car_number,omitempty"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	InstantBooking bool      `json:"instant_booking"`
	AllowSmoking   bool      `json:"allow_smoking"`
	AllowPets      bool      `json:"allow_pets"`
	AllowFood      bool      `json:"allow_food"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type rideWithStatsResponse struct {
	rideResponse
	Stats booking.RideStats `json:"stats"`
}

type bookingResponse struct {
	ID             string    `json:"id"`
	RideID         string    `json:"ride_id"`
	PassengerID    string    `json:"passenger_id"`
	SeatsRequested int       `json:"seats_requested"`
	TotalAmount    float64   `json:"total_amount"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Rating     float64   `json:"rating"`
	TotalTrips int       `json:"total_trips"`
	CreatedAt  time.Time `json:"created_at"`
}

func toRideResponse(r *ride.Ride) rideResponse {
	return rideResponse{
		ID:             r.ID,
		DriverID:       r.DriverID,
		From:           r.From,
		To:             r.To,
		DepartureAt:    r.DepartureAt,
		Stops:          r.Stops,
		Capacity:       r.Capacity,
		SeatsAvailable: r.SeatsAvailable,
		PricePerSeat:   r.PricePerSeat,
		CarModel:       r.CarModel,
		CarNumber:      r.CarNumber,
		AdditionalInfo: r.AdditionalInfo,
		InstantBooking: r.Policy.InstantBooking,
		AllowSmoking:   r.Policy.AllowSmoking,
		AllowPets:      r.Policy.AllowPets,
		AllowFood:      r.Policy.AllowFood,
		Status:         r.Status.String(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toRideResponses(rides []*ride.Ride) []rideResponse {
	out := make([]rideResponse, 0, len(rides))
	for _, r := range rides {
		out = append(out, toRideResponse(r))
	}
	return out
}

func toRideWithStatsResponses(rides []ports.RideWithStats) []rideWithStatsResponse {
	out := make([]rideWithStatsResponse, 0, len(rides))
	for _, rs := range rides {
		out = append(out, rideWithStatsResponse{rideResponse: toRideResponse(rs.Ride), Stats: rs.Stats})
	}
	return out
}

func toBookingResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:             b.ID,
		RideID:         b.RideID,
		PassengerID:    b.PassengerID,
		SeatsRequested: b.SeatsRequested,
		TotalAmount:    b.TotalAmount,
		Status:         b.Status.String(),
		Message:        b.Message,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func toBookingResponses(bookings []*booking.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role.String(),
		Rating:     u.Rating,
		TotalTrips: u.TotalTrips,
		CreatedAt:  u.CreatedAt,
	}
}
