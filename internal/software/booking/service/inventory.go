package service

import (
	"context"
	"errors"
	"time"

	"carpool/internal/domain/apperr"
	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/ports"
)

var errSeatDrift = errors.New("released seats exceed ride capacity")

// seatInventory owns seats_available. Every check-and-mutate runs under the ride's row lock,
// joining the caller's transaction when there is one.
type seatInventory struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	uow     ports.UnitOfWork
	rides   ports.RideRepository
	now     func() time.Time
}

func newSeatInventory(logger *logger.Logger, metrics *metrics.Metrics, uow ports.UnitOfWork, rides ports.RideRepository, now func() time.Time) *seatInventory {
	return &seatInventory{logger: logger, metrics: metrics, uow: uow, rides: rides, now: now}
}

// Reserve takes seats from the ride and returns the seats left.
func (inv *seatInventory) Reserve(ctx context.Context, rideID string, seats int) (int, error) {
	var remaining int
	err := inv.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := inv.rides.GetForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}
		if err := r.Reserve(seats); err != nil {
			return err
		}
		if err := inv.rides.UpdateSeats(txCtx, rideID, r.SeatsAvailable, inv.now()); err != nil {
			return err
		}
		remaining = r.SeatsAvailable
		return nil
	})
	inv.metrics.SeatOperation("reserve", resultOf(err))
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Release gives seats back, never beyond capacity, and returns the seats now available.
// A clamped release is reported, not returned as an error.
func (inv *seatInventory) Release(ctx context.Context, rideID string, seats int) (int, error) {
	var available int
	err := inv.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := inv.rides.GetForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}

		before := r.SeatsAvailable
		if r.Release(seats) {
			inv.metrics.ReleaseClamped()
			inv.logger.Error(txCtx, "seat_release_clamped", "Seat release would exceed ride capacity", errSeatDrift, map[string]any{
				"ride_id":         rideID,
				"seats":           seats,
				"capacity":        r.Capacity,
				"seats_available": before,
			})
		}
		if r.SeatsAvailable == before {
			available = before
			return nil
		}
		if err := inv.rides.UpdateSeats(txCtx, rideID, r.SeatsAvailable, inv.now()); err != nil {
			return err
		}
		available = r.SeatsAvailable
		return nil
	})
	inv.metrics.SeatOperation("release", resultOf(err))
	if err != nil {
		return 0, err
	}
	return available, nil
}

// resultOf buckets an error for metrics: domain rejections versus infrastructure failures.
func resultOf(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if _, ok := apperr.KindOf(err); ok {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
