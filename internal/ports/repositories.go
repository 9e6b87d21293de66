package ports

import (
	"context"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
// Row locks taken inside fn are held until fn returns.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RideQuery filters ride searches. Empty fields match everything.
type RideQuery struct {
	From string
	To   string
	Date time.Time // zero means any day
}

// RideRepository defines the methods for managing ride data.
// GetForUpdate locks the ride row until the surrounding transaction ends.
type RideRepository interface {
	Create(ctx context.Context, r *ride.Ride) error
	GetByID(ctx context.Context, id string) (*ride.Ride, error)
	GetForUpdate(ctx context.Context, id string) (*ride.Ride, error)
	UpdateSeats(ctx context.Context, id string, seatsAvailable int, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status ride.Status, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q RideQuery) ([]*ride.Ride, error)
	ListActive(ctx context.Context, departingFrom time.Time) ([]*ride.Ride, error)
	ListByDriver(ctx context.Context, driverID string) ([]*ride.Ride, error)
}

// BookingRepository defines the methods for managing booking data.
type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	GetForUpdate(ctx context.Context, id string) (*booking.Booking, error)
	UpdateStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) error
	ListByPassenger(ctx context.Context, passengerID string) ([]*booking.Booking, error)
	ListByRide(ctx context.Context, rideID string) ([]*booking.Booking, error)
	ListByDriver(ctx context.Context, driverID string) ([]*booking.Booking, error)
	CountByRide(ctx context.Context, rideID string) (int, error)
}

// UserRepository defines the methods for managing user data.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id string) (*user.User, error)
	GetForUpdate(ctx context.Context, id string) (*user.User, error)
	UpdateRating(ctx context.Context, id string, rating float64, totalTrips int, updatedAt time.Time) error
}

// BookingEventRepository appends audit events inside the caller's transaction.
type BookingEventRepository interface {
	Append(ctx context.Context, e *booking.Event) error
	ListByRide(ctx context.Context, rideID string) ([]*booking.Event, error)
}
