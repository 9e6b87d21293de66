package redis

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"carpool/internal/general/config"
	"carpool/internal/general/logger"

	goredis "github.com/redis/go-redis/v9"
)

// Connect opens a client for cfg.Redis and verifies it with PING.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*goredis.Client, error) {
	addr := net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"addr": addr,
		"db":   cfg.Redis.DB,
	})
	return client, nil
}
