package service

import (
	"context"
	"fmt"
	"sort"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/general/telemetry"
	"carpool/internal/ports"

	"go.opentelemetry.io/otel/attribute"
)

// CreateRide publishes a new ACTIVE ride with every seat available.
func (service *reservationService) CreateRide(ctx context.Context, in ports.CreateRideInput) (*ride.Ride, error) {
	corrID := correlationID(ctx)

	var created *ride.Ride
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.users.GetByID(txCtx, in.DriverID); err != nil {
			return err
		}

		r, err := ride.NewRide(in.DriverID, ride.Details{
			From:           in.From,
			To:             in.To,
			DepartureAt:    in.DepartureAt,
			Stops:          in.Stops,
			Capacity:       in.Capacity,
			PricePerSeat:   in.PricePerSeat,
			CarModel:       in.CarModel,
			CarNumber:      in.CarNumber,
			AdditionalInfo: in.AdditionalInfo,
			Policy:         in.Policy,
		}, service.now())
		if err != nil {
			return err
		}

		if err := service.rides.Create(txCtx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		service.logFailure(ctx, "ride_create_failed", "Failed to create ride", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
		return nil, err
	}

	service.logger.Info(service.logger.WithRideID(ctx, created.ID), "ride_created",
		fmt.Sprintf("Ride %s created", created.ID),
		map[string]any{
			"driver_id":    created.DriverID,
			"from":         created.From,
			"to":           created.To,
			"departure_at": created.DepartureAt,
			"capacity":     created.Capacity,
			"instant":      created.Policy.InstantBooking,
			"request_id":   corrID,
		},
	)
	return created, nil
}

// UpdateRideStatus completes or cancels a ride. Cancelling cascades to every open booking:
// PENDING ones are cancelled and CONFIRMED ones are cancelled with their seats released.
func (service *reservationService) UpdateRideStatus(ctx context.Context, rideID string, status ride.Status, actorID string) (_ *ride.Ride, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ride.update_status",
		attribute.String("ride.id", rideID),
		attribute.String("ride.requested_status", status.String()),
	)
	defer func() { telemetry.End(span, err) }()

	ctx = service.logger.WithRideID(ctx, rideID)
	corrID := correlationID(ctx)

	var (
		updated   *ride.Ride
		prev      ride.Status
		cancelled []cancelledBooking
	)

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rides.GetForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}
		prev = r.Status
		now := service.now()
		if err := r.ChangeStatus(status, actorID, now); err != nil {
			return err
		}

		if r.Status == ride.StatusCancelled {
			if cancelled, err = service.cancelOpenBookings(txCtx, r.ID, actorID); err != nil {
				return err
			}
		}

		if err := service.rides.UpdateStatus(txCtx, r.ID, r.Status, now); err != nil {
			return err
		}

		eventType := booking.EventRideCompleted
		if r.Status == ride.StatusCancelled {
			eventType = booking.EventRideCancelled
		}
		if err := service.appendEvent(txCtx, r.ID, "", eventType, map[string]any{
			"old_status":         prev.String(),
			"new_status":         r.Status.String(),
			"cancelled_bookings": len(cancelled),
		}); err != nil {
			return err
		}

		// the cascade released seats through the inventory; reload to return them
		if updated, err = service.rides.GetByID(txCtx, r.ID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		service.logFailure(ctx, "ride_status_update_failed", "Failed to update ride status", err, map[string]any{
			"requested_status": status.String(),
			"actor_id":         actorID,
			"request_id":       corrID,
		})
		return nil, err
	}

	ids := make([]string, 0, len(cancelled))
	for _, c := range cancelled {
		ids = append(ids, c.booking.ID)
		msg := bookingMessage(c.booking, c.prev, updated.SeatsAvailable, actorID, corrID)
		service.publish(ctx, msg.RouteKey(), msg)
	}
	rideMsg := rideMessage(updated, ids, corrID)
	service.publish(ctx, rideMsg.RouteKey(), rideMsg)
	service.invalidateStats(ctx, updated.ID)

	service.logger.Info(ctx, "ride_status_updated",
		fmt.Sprintf("Ride %s moved %s -> %s", updated.ID, prev, updated.Status),
		map[string]any{
			"cancelled_bookings": ids,
			"seats_available":    updated.SeatsAvailable,
			"request_id":         corrID,
		},
	)
	return updated, nil
}

type cancelledBooking struct {
	booking *booking.Booking
	prev    booking.Status
}

// cancelOpenBookings runs inside the ride's transaction with the ride already locked.
// Bookings are locked in id order so concurrent cascades cannot deadlock.
func (service *reservationService) cancelOpenBookings(ctx context.Context, rideID, actorID string) ([]cancelledBooking, error) {
	all, err := service.bookings.ListByRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	var cancelled []cancelledBooking
	for _, listed := range all {
		if listed.Status.Terminal() {
			continue
		}

		b, err := service.bookings.GetForUpdate(ctx, listed.ID)
		if err != nil {
			return nil, err
		}
		rule, ok := booking.Lookup(b.Status, booking.StatusCancelled)
		if !ok {
			continue
		}
		if rule.Effect == booking.EffectRelease {
			if _, err := service.inventory.Release(ctx, rideID, b.SeatsRequested); err != nil {
				return nil, err
			}
		}

		prev := b.Status
		b.Apply(booking.StatusCancelled, service.now())
		if err := service.bookings.UpdateStatus(ctx, b.ID, b.Status, b.UpdatedAt); err != nil {
			return nil, err
		}
		if err := service.appendEvent(ctx, rideID, b.ID, booking.EventBookingCancelled, map[string]any{
			"old_status": prev.String(),
			"new_status": b.Status.String(),
			"actor_id":   actorID,
			"actor_role": booking.ActorSystem.String(),
			"reason":     "ride_cancelled",
		}); err != nil {
			return nil, err
		}
		cancelled = append(cancelled, cancelledBooking{booking: b, prev: prev})
	}
	return cancelled, nil
}

// DeleteRide removes a ride nobody has booked. Only its driver may do so.
func (service *reservationService) DeleteRide(ctx context.Context, rideID, actorID string) error {
	ctx = service.logger.WithRideID(ctx, rideID)
	corrID := correlationID(ctx)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.rides.GetForUpdate(txCtx, rideID)
		if err != nil {
			return err
		}
		if r.DriverID != actorID {
			return ride.ErrNotRideDriver
		}

		n, err := service.bookings.CountByRide(txCtx, rideID)
		if err != nil {
			return err
		}
		if n > 0 {
			return ride.ErrRideHasBookings
		}
		return service.rides.Delete(txCtx, rideID)
	})
	if err != nil {
		service.logFailure(ctx, "ride_delete_failed", "Failed to delete ride", err, map[string]any{
			"actor_id":   actorID,
			"request_id": corrID,
		})
		return err
	}

	service.invalidateStats(ctx, rideID)
	service.logger.Info(ctx, "ride_deleted", fmt.Sprintf("Ride %s deleted", rideID), map[string]any{
		"request_id": corrID,
	})
	return nil
}
