package service

import (
	"context"
	"fmt"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
	"carpool/internal/ports"
)

func (service *reservationService) GetRide(ctx context.Context, rideID string) (*ride.Ride, error) {
	var out *ride.Ride
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.rides.GetByID(txCtx, rideID)
		return err
	})
	return out, err
}

func (service *reservationService) SearchRides(ctx context.Context, q ports.RideQuery) ([]*ride.Ride, error) {
	var out []*ride.Ride
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.rides.Search(txCtx, q)
		return err
	})
	return out, err
}

// ListActiveRides returns bookable rides departing today or later.
func (service *reservationService) ListActiveRides(ctx context.Context) ([]*ride.Ride, error) {
	today := service.now().Truncate(24 * time.Hour)

	var out []*ride.Ride
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.rides.ListActive(txCtx, today)
		return err
	})
	return out, err
}

// ListRidesByDriver returns the driver's rides with their booking stats.
// Stats come from the projection cache when present and are computed and stored otherwise.
func (service *reservationService) ListRidesByDriver(ctx context.Context, driverID string) ([]ports.RideWithStats, error) {
	var rides []*ride.Ride
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		rides, err = service.rides.ListByDriver(txCtx, driverID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.RideWithStats, 0, len(rides))
	for _, r := range rides {
		stats, err := service.rideStats(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ports.RideWithStats{Ride: r, Stats: stats})
	}
	return out, nil
}

func (service *reservationService) rideStats(ctx context.Context, rideID string) (booking.RideStats, error) {
	if service.cache != nil {
		stats, ok, err := service.cache.Get(ctx, rideID)
		if err != nil {
			service.logger.Error(ctx, "stats_cache_read_failed", "Failed to read ride stats from cache", err, map[string]any{
				"ride_id": rideID,
			})
		} else if ok {
			return stats, nil
		}
	}

	var bookings []*booking.Booking
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		bookings, err = service.bookings.ListByRide(txCtx, rideID)
		return err
	})
	if err != nil {
		return booking.RideStats{}, err
	}
	stats := booking.Summarize(rideID, bookings)

	if service.cache != nil {
		if err := service.cache.Set(ctx, stats); err != nil {
			service.logger.Error(ctx, "stats_cache_write_failed", "Failed to store ride stats", err, map[string]any{
				"ride_id": rideID,
			})
		}
	}
	return stats, nil
}

func (service *reservationService) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	var out *booking.Booking
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.bookings.GetByID(txCtx, bookingID)
		return err
	})
	return out, err
}

func (service *reservationService) ListBookingsByPassenger(ctx context.Context, passengerID string) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.bookings.ListByPassenger(txCtx, passengerID)
		return err
	})
	return out, err
}

// ListBookingsForDriver returns the bookings on every ride the driver offers.
func (service *reservationService) ListBookingsForDriver(ctx context.Context, driverID string) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.bookings.ListByDriver(txCtx, driverID)
		return err
	})
	return out, err
}

func (service *reservationService) ListBookingsByRide(ctx context.Context, rideID string) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		if _, err := service.rides.GetByID(txCtx, rideID); err != nil {
			return err
		}
		out, err = service.bookings.ListByRide(txCtx, rideID)
		return err
	})
	return out, err
}

// RegisterUser creates an unrated account.
func (service *reservationService) RegisterUser(ctx context.Context, in ports.RegisterUserInput) (*user.User, error) {
	u, err := user.NewUser(in.Name, in.Email, in.Role, service.now())
	if err != nil {
		return nil, err
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.users.Create(txCtx, u)
	})
	if err != nil {
		service.logFailure(ctx, "user_register_failed", "Failed to register user", err, map[string]any{
			"role":       in.Role.String(),
			"request_id": correlationID(ctx),
		})
		return nil, err
	}

	service.logger.Info(ctx, "user_registered", fmt.Sprintf("User %s registered", u.ID), map[string]any{
		"role": u.Role.String(),
	})
	return u, nil
}

func (service *reservationService) GetUser(ctx context.Context, userID string) (*user.User, error) {
	var out *user.User
	err := service.read(ctx, func(txCtx context.Context) (err error) {
		out, err = service.users.GetByID(txCtx, userID)
		return err
	})
	return out, err
}

// RecordRating folds one rating into the user's average outside any booking transition.
func (service *reservationService) RecordRating(ctx context.Context, userID string, rating float64) (*user.User, error) {
	u, err := service.ratings.RecordRating(ctx, userID, rating)
	if err != nil {
		service.logFailure(ctx, "rating_record_failed", "Failed to record rating", err, map[string]any{
			"user_id":    userID,
			"rating":     rating,
			"request_id": correlationID(ctx),
		})
		return nil, err
	}
	return u, nil
}
