package service

import (
	"context"
	"encoding/json"
	"time"

	"carpool/internal/domain/apperr"
	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/general/contracts"
	"carpool/internal/general/logger"

	"github.com/google/uuid"
)

// correlationID reuses the request id when the call came in over HTTP.
func correlationID(ctx context.Context) string {
	if id := logger.RequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// read runs fn in a transaction so every storage backend sees a consistent snapshot.
func (service *reservationService) read(ctx context.Context, fn func(ctx context.Context) error) error {
	return service.uow.WithinTx(ctx, fn)
}

// logFailure logs domain rejections at INFO and everything else at ERROR.
func (service *reservationService) logFailure(ctx context.Context, action, msg string, err error, details map[string]any) {
	if kind, ok := apperr.KindOf(err); ok {
		if details == nil {
			details = map[string]any{}
		}
		details["reason"] = string(kind)
		details["error"] = err.Error()
		service.logger.Info(ctx, action, msg, details)
		return
	}
	service.logger.Error(ctx, action, msg, err, details)
}

// appendEvent writes an audit row inside the caller's transaction.
func (service *reservationService) appendEvent(ctx context.Context, rideID, bookingID string, eventType booking.EventType, data map[string]any) error {
	ev, err := booking.NewEvent(rideID, bookingID, eventType, data, service.now())
	if err != nil {
		return err
	}
	return service.events.Append(ctx, ev)
}

func bookingMessage(b *booking.Booking, prev booking.Status, seatsAvailable int, actorID, corrID string) contracts.BookingStatusMessage {
	msg := contracts.BookingStatusMessage{
		Kind:           contracts.KindBookingStatus,
		BookingID:      b.ID,
		RideID:         b.RideID,
		PassengerID:    b.PassengerID,
		Status:         b.Status.String(),
		SeatsRequested: b.SeatsRequested,
		SeatsAvailable: seatsAvailable,
		TotalAmount:    b.TotalAmount,
		ActorID:        actorID,
		Timestamp:      b.UpdatedAt,
		Envelope: contracts.Envelope{
			MessageID:     uuid.NewString(),
			CorrelationID: corrID,
			Producer:      producer,
			SentAt:        time.Now().UTC(),
		},
	}
	if prev != "" {
		msg.PreviousStatus = prev.String()
	}
	return msg
}

func rideMessage(r *ride.Ride, cancelled []string, corrID string) contracts.RideStatusMessage {
	return contracts.RideStatusMessage{
		Kind:              contracts.KindRideStatus,
		RideID:            r.ID,
		DriverID:          r.DriverID,
		Status:            r.Status.String(),
		Timestamp:         r.UpdatedAt,
		CancelledBookings: cancelled,
		SeatsAvailable:    r.SeatsAvailable,
		Envelope: contracts.Envelope{
			MessageID:     uuid.NewString(),
			CorrelationID: corrID,
			Producer:      producer,
			SentAt:        time.Now().UTC(),
		},
	}
}

// publish sends msg on the booking exchange after commit. Failures are logged, never returned.
func (service *reservationService) publish(ctx context.Context, routingKey string, msg any) {
	if service.pub == nil {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		service.logger.Error(ctx, "event_encode_failed", "Failed to encode event", err, map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	// the request may already be finished; the publisher applies its own timeout
	if err := service.pub.Publish(context.WithoutCancel(ctx), contracts.ExchangeBookingTopic, routingKey, body); err != nil {
		service.logger.Error(ctx, "event_publish_failed", "Failed to publish event to RabbitMQ", err, map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	service.logger.Debug(ctx, "event_published", "Published event to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
}

// invalidateStats drops the cached projection of a ride; the projection worker rebuilds it.
func (service *reservationService) invalidateStats(ctx context.Context, rideID string) {
	if service.cache == nil {
		return
	}
	if err := service.cache.Delete(context.WithoutCancel(ctx), rideID); err != nil {
		service.logger.Error(ctx, "stats_cache_invalidate_failed", "Failed to invalidate ride stats", err, map[string]any{
			"ride_id": rideID,
		})
	}
}
