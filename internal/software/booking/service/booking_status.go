package service

import (
	"context"
	"fmt"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/user"
	"carpool/internal/general/telemetry"
	"carpool/internal/ports"

	"go.opentelemetry.io/otel/attribute"
)

// UpdateBookingStatus moves a booking along the transition table on behalf of in.ActorID.
// Locks are taken ride first, then booking, then (for a completion rating) the passenger.
func (service *reservationService) UpdateBookingStatus(ctx context.Context, in ports.UpdateBookingStatusInput) (_ *booking.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.update_status",
		attribute.String("booking.id", in.BookingID),
		attribute.String("booking.requested_status", in.Status.String()),
	)
	defer func() { telemetry.End(span, err) }()

	ctx = service.logger.WithBookingID(ctx, in.BookingID)
	corrID := correlationID(ctx)

	if !in.Status.Valid() {
		return nil, booking.ErrInvalidTransition
	}
	if in.PassengerRating != nil {
		if in.Status != booking.StatusCompleted {
			return nil, booking.ErrRatingNeedsCompletion
		}
		if err := user.ValidateRating(*in.PassengerRating); err != nil {
			return nil, err
		}
	}

	var (
		updated        *booking.Booking
		prev           booking.Status
		seatsAvailable int
		actor          booking.Actor
	)

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// unlocked read only to learn which ride to lock first
		peek, err := service.bookings.GetByID(txCtx, in.BookingID)
		if err != nil {
			return err
		}
		r, err := service.rides.GetForUpdate(txCtx, peek.RideID)
		if err != nil {
			return err
		}
		b, err := service.bookings.GetForUpdate(txCtx, in.BookingID)
		if err != nil {
			return err
		}

		if actor, err = b.ActorFor(in.ActorID, r.DriverID); err != nil {
			return err
		}
		prev = b.Status
		rule, err := b.Plan(in.Status, actor)
		if err != nil {
			return err
		}

		seatsAvailable = r.SeatsAvailable
		switch rule.Effect {
		case booking.EffectReserve:
			if seatsAvailable, err = service.inventory.Reserve(txCtx, r.ID, b.SeatsRequested); err != nil {
				return err
			}
		case booking.EffectRelease:
			if seatsAvailable, err = service.inventory.Release(txCtx, r.ID, b.SeatsRequested); err != nil {
				return err
			}
		case booking.EffectComplete:
			if !r.Departed(service.now()) {
				return booking.ErrCompletionBeforeDeparture
			}
			if in.PassengerRating != nil {
				if _, err := service.ratings.RecordRating(txCtx, b.PassengerID, *in.PassengerRating); err != nil {
					return err
				}
			}
		}

		b.Apply(in.Status, service.now())
		if err := service.bookings.UpdateStatus(txCtx, b.ID, b.Status, b.UpdatedAt); err != nil {
			return err
		}

		if err := service.appendEvent(txCtx, r.ID, b.ID, booking.EventFor(b.Status), map[string]any{
			"old_status": prev.String(),
			"new_status": b.Status.String(),
			"actor_id":   in.ActorID,
			"actor_role": actor.String(),
		}); err != nil {
			return err
		}

		updated = b
		return nil
	})

	service.metrics.Transition(statusLabel(prev), in.Status.String(), resultOf(err))
	if err != nil {
		service.logFailure(ctx, "booking_status_update_failed", "Failed to update booking status", err, map[string]any{
			"requested_status": in.Status.String(),
			"actor_id":         in.ActorID,
			"request_id":       corrID,
		})
		return nil, err
	}

	msg := bookingMessage(updated, prev, seatsAvailable, in.ActorID, corrID)
	service.publish(ctx, msg.RouteKey(), msg)
	service.invalidateStats(ctx, updated.RideID)

	service.logger.Info(service.logger.WithRideID(ctx, updated.RideID), "booking_status_updated",
		fmt.Sprintf("Booking %s moved %s -> %s", updated.ID, prev, updated.Status),
		map[string]any{
			"actor_id":        in.ActorID,
			"actor_role":      actor.String(),
			"seats_available": seatsAvailable,
			"request_id":      corrID,
		},
	)

	return updated, nil
}

func statusLabel(s booking.Status) string {
	if s == "" {
		return "unknown"
	}
	return s.String()
}
