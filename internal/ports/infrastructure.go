package ports

import (
	"context"

	"carpool/internal/domain/booking"
)

// Publisher sends an already-encoded message to the broker.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Consumer delivers queued messages to handler until ctx is done.
// A handler error negatively acknowledges the message.
type Consumer interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handler func(ctx context.Context, body []byte) error) error
}

// StatsCache stores the ride stats projection.
type StatsCache interface {
	Get(ctx context.Context, rideID string) (booking.RideStats, bool, error)
	Set(ctx context.Context, stats booking.RideStats) error
	Delete(ctx context.Context, rideID string) error
}
