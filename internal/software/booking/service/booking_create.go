package service

import (
	"context"
	"fmt"

	"carpool/internal/domain/booking"
	"carpool/internal/general/telemetry"
	"carpool/internal/ports"

	"go.opentelemetry.io/otel/attribute"
)

// CreateBooking books seats on a ride. With instant booking the seats are reserved and the
// booking confirmed in the same transaction; a failed reservation leaves nothing behind.
func (service *reservationService) CreateBooking(ctx context.Context, in ports.CreateBookingInput) (_ *booking.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "booking.create",
		attribute.String("ride.id", in.RideID),
		attribute.Int("booking.seats", in.SeatsRequested),
	)
	defer func() { telemetry.End(span, err) }()

	ctx = service.logger.WithRideID(ctx, in.RideID)
	corrID := correlationID(ctx)

	var (
		created        *booking.Booking
		seatsAvailable int
	)

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// the ride lock serializes this booking against every other seat change on the ride
		r, err := service.rides.GetForUpdate(txCtx, in.RideID)
		if err != nil {
			return err
		}

		b, err := booking.NewBooking(r, in.PassengerID, in.SeatsRequested, in.Message, service.now())
		if err != nil {
			return err
		}
		if _, err := service.users.GetByID(txCtx, b.PassengerID); err != nil {
			return err
		}

		seatsAvailable = r.SeatsAvailable
		if r.Policy.InstantBooking {
			rule, err := b.Plan(booking.StatusConfirmed, booking.ActorSystem)
			if err != nil {
				return err
			}
			if rule.Effect == booking.EffectReserve {
				if seatsAvailable, err = service.inventory.Reserve(txCtx, r.ID, b.SeatsRequested); err != nil {
					return err
				}
			}
			b.Apply(booking.StatusConfirmed, service.now())
		}

		if err := service.bookings.Create(txCtx, b); err != nil {
			return err
		}

		if err := service.appendEvent(txCtx, r.ID, b.ID, booking.EventBookingCreated, map[string]any{
			"status":          b.Status.String(),
			"passenger_id":    b.PassengerID,
			"seats_requested": b.SeatsRequested,
			"total_amount":    b.TotalAmount,
			"instant":         r.Policy.InstantBooking,
		}); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		service.logFailure(ctx, "booking_create_failed", "Failed to create booking", err, map[string]any{
			"passenger_id":    in.PassengerID,
			"seats_requested": in.SeatsRequested,
			"request_id":      corrID,
		})
		return nil, err
	}

	service.metrics.BookingCreated(created.Status.String())
	span.SetAttributes(attribute.String("booking.id", created.ID), attribute.String("booking.status", created.Status.String()))

	msg := bookingMessage(created, "", seatsAvailable, in.PassengerID, corrID)
	service.publish(ctx, msg.RouteKey(), msg)
	service.invalidateStats(ctx, created.RideID)

	service.logger.Info(service.logger.WithBookingID(ctx, created.ID), "booking_created",
		fmt.Sprintf("Booking %s created as %s", created.ID, created.Status),
		map[string]any{
			"passenger_id":    created.PassengerID,
			"seats_requested": created.SeatsRequested,
			"seats_available": seatsAvailable,
			"total_amount":    created.TotalAmount,
			"request_id":      corrID,
		},
	)

	return created, nil
}

