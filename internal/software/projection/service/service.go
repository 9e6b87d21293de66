package service

import (
	"context"
	"errors"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/general/contracts"
	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/ports"
)

const (
	consumerTag  = "projection-worker"
	retryBackoff = 2 * time.Second
)

// projectionService rebuilds a ride's stats whenever one of its bookings or the ride itself changes.
// Stats are recomputed from storage, so duplicate or out-of-order events converge to the same value.
type projectionService struct {
	logger   *logger.Logger
	metrics  *metrics.Metrics
	uow      ports.UnitOfWork
	rides    ports.RideRepository
	bookings ports.BookingRepository
	cache    ports.StatsCache
	consumer ports.Consumer
}

// NewProjectionService creates the ride stats projector.
func NewProjectionService(
	logger *logger.Logger,
	metrics *metrics.Metrics,
	uow ports.UnitOfWork,
	rides ports.RideRepository,
	bookings ports.BookingRepository,
	cache ports.StatsCache,
	consumer ports.Consumer,
) ports.ProjectionService {
	return &projectionService{
		logger:   logger,
		metrics:  metrics,
		uow:      uow,
		rides:    rides,
		bookings: bookings,
		cache:    cache,
		consumer: consumer,
	}
}

// Refresh recomputes and stores the stats of one ride. A deleted ride loses its cache entry.
func (service *projectionService) Refresh(ctx context.Context, rideID string) (booking.RideStats, error) {
	var (
		list []*booking.Booking
		gone bool
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.rides.GetByID(txCtx, rideID); err != nil {
			if errors.Is(err, ride.ErrRideNotFound) {
				gone = true
				return nil
			}
			return err
		}
		var err error
		list, err = service.bookings.ListByRide(txCtx, rideID)
		return err
	})
	if err != nil {
		return booking.RideStats{}, err
	}

	if gone {
		if err := service.cache.Delete(ctx, rideID); err != nil {
			return booking.RideStats{}, err
		}
		return booking.RideStats{RideID: rideID}, nil
	}

	stats := booking.Summarize(rideID, list)
	if err := service.cache.Set(ctx, stats); err != nil {
		return booking.RideStats{}, err
	}
	return stats, nil
}

// HandleMessage refreshes the ride named in a booking or ride status event.
// Undecodable messages are dropped; storage and cache failures are returned for redelivery.
func (service *projectionService) HandleMessage(ctx context.Context, body []byte) error {
	kind, rideID, err := contracts.Peek(body)
	if err != nil {
		service.metrics.ProjectionEvent(string(kind), metrics.ResultRejected)
		service.logger.Error(ctx, "projection_message_invalid", "Dropping undecodable message", err, map[string]any{
			"body": string(body),
		})
		return nil
	}
	ctx = service.logger.WithRideID(ctx, rideID)

	stats, err := service.Refresh(ctx, rideID)
	if err != nil {
		service.metrics.ProjectionEvent(string(kind), metrics.ResultError)
		service.logger.Error(ctx, "projection_refresh_failed", "Failed to refresh ride stats", err, map[string]any{
			"kind": string(kind),
		})
		return err
	}

	service.metrics.ProjectionEvent(string(kind), metrics.ResultOK)
	service.logger.Debug(ctx, "projection_refreshed", "Ride stats refreshed", map[string]any{
		"kind":           string(kind),
		"bookings_count": stats.BookingsCount,
		"seats_booked":   stats.SeatsBooked,
		"revenue":        stats.Revenue,
	})
	return nil
}

// Run consumes the projection queue until ctx is done, resubscribing after channel loss.
func (service *projectionService) Run(ctx context.Context, prefetch int) error {
	for {
		err := service.consumer.Consume(ctx, contracts.QueueRideStatsProjection, consumerTag, prefetch, service.HandleMessage)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			service.logger.Error(ctx, "projection_consume_failed", "Consumer stopped, resubscribing", err, map[string]any{
				"queue":   contracts.QueueRideStatsProjection,
				"backoff": retryBackoff.String(),
			})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryBackoff):
		}
	}
}
