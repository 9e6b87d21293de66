package ports

import (
	"context"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
)

// ----- DTOs for the Reservation Service -----

// CreateRideInput is the validated input required to publish a ride.
type CreateRideInput struct {
	DriverID       string
	From           string
	To             string
	DepartureAt    time.Time
	Stops          string
	Capacity       int
	PricePerSeat   float64
	CarModel       string
	CarNumber      string
	AdditionalInfo string
	Policy         ride.Policy
}

// CreateBookingInput is the validated input required to book seats.
type CreateBookingInput struct {
	RideID         string
	PassengerID    string
	SeatsRequested int
	Message        string
}

// UpdateBookingStatusInput moves a booking along its lifecycle.
// PassengerRating, when set on a COMPLETED request, is recorded for the passenger in the same transaction.
type UpdateBookingStatusInput struct {
	BookingID       string
	Status          booking.Status
	ActorID         string
	PassengerRating *float64
}

// RegisterUserInput creates an account. Registration proper lives outside this service.
type RegisterUserInput struct {
	Name  string
	Email string
	Role  user.Role
}

// RideWithStats pairs a ride with its bookings projection.
type RideWithStats struct {
	Ride  *ride.Ride
	Stats booking.RideStats
}

// ----- Component interfaces -----

// Inventory owns seat accounting. Both calls are linearizable per ride.
type Inventory interface {
	Reserve(ctx context.Context, rideID string, seats int) (int, error)
	Release(ctx context.Context, rideID string, seats int) (int, error)
}

// RatingAggregator maintains the running average rating per user.
type RatingAggregator interface {
	RecordRating(ctx context.Context, userID string, rating float64) (*user.User, error)
}

// ReservationService is the boundary of the booking engine.
type ReservationService interface {
	CreateRide(ctx context.Context, in CreateRideInput) (*ride.Ride, error)
	GetRide(ctx context.Context, rideID string) (*ride.Ride, error)
	SearchRides(ctx context.Context, q RideQuery) ([]*ride.Ride, error)
	ListActiveRides(ctx context.Context) ([]*ride.Ride, error)
	ListRidesByDriver(ctx context.Context, driverID string) ([]RideWithStats, error)
	UpdateRideStatus(ctx context.Context, rideID string, status ride.Status, actorID string) (*ride.Ride, error)
	DeleteRide(ctx context.Context, rideID, actorID string) error

	CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error)
	UpdateBookingStatus(ctx context.Context, in UpdateBookingStatusInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
	ListBookingsByPassenger(ctx context.Context, passengerID string) ([]*booking.Booking, error)
	ListBookingsForDriver(ctx context.Context, driverID string) ([]*booking.Booking, error)
	ListBookingsByRide(ctx context.Context, rideID string) ([]*booking.Booking, error)

	RegisterUser(ctx context.Context, in RegisterUserInput) (*user.User, error)
	GetUser(ctx context.Context, userID string) (*user.User, error)
	RecordRating(ctx context.Context, userID string, rating float64) (*user.User, error)
}

// ProjectionService keeps the ride stats projection fresh from booking events.
type ProjectionService interface {
	Refresh(ctx context.Context, rideID string) (booking.RideStats, error)
	HandleMessage(ctx context.Context, body []byte) error
	Run(ctx context.Context, prefetch int) error
}
