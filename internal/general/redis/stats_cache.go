package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/ports"

	goredis "github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "carpool:ride_stats:"

// StatsCache stores ride stats as JSON strings with a TTL.
type StatsCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewStatsCache returns a ports.StatsCache on client. A zero ttl keeps entries until deleted.
func NewStatsCache(client goredis.Cmdable, ttl time.Duration) ports.StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get returns the cached stats. ok is false on a miss.
func (c *StatsCache) Get(ctx context.Context, rideID string) (booking.RideStats, bool, error) {
	raw, err := c.client.Get(ctx, statsKey(rideID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return booking.RideStats{}, false, nil
	}
	if err != nil {
		return booking.RideStats{}, false, fmt.Errorf("redis get stats: %w", err)
	}

	stats, err := decodeStats(raw)
	if err != nil {
		return booking.RideStats{}, false, err
	}
	return stats, true, nil
}

// Set stores stats under the ride's key.
func (c *StatsCache) Set(ctx context.Context, stats booking.RideStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(stats.RideID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stats: %w", err)
	}
	return nil
}

// Delete drops the ride's entry. Missing keys are not an error.
func (c *StatsCache) Delete(ctx context.Context, rideID string) error {
	if err := c.client.Del(ctx, statsKey(rideID)).Err(); err != nil {
		return fmt.Errorf("redis del stats: %w", err)
	}
	return nil
}

func statsKey(rideID string) string {
	return statsKeyPrefix + rideID
}

func decodeStats(raw []byte) (booking.RideStats, error) {
	var stats booking.RideStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return booking.RideStats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}
