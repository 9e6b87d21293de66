package projectionworker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"carpool/internal/general/config"
	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/general/rabbitmq"
	"carpool/internal/general/redis"
	"carpool/internal/general/storage"
	"carpool/internal/general/telemetry"
	"carpool/internal/software/projection/service"
)

const serviceName = "projection-worker"

// Run consumes booking and ride status events and keeps the ride stats cache fresh
// until ctx is cancelled. metricsPort 0 disables the metrics listener.
func Run(ctx context.Context, prefetch, metricsPort int) error {
	logger := logger.New(serviceName)
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}
	if err := checkConfig(cfg); err != nil {
		logger.Error(ctx, "config_invalid", "Projection worker cannot run with this configuration", err, nil)
		return err
	}

	shutdownTracing, err := telemetry.Init(serviceName, cfg.Telemetry.Exporter)
	if err != nil {
		logger.Error(ctx, "telemetry_init_failed", "Failed to initialize tracing", err, nil)
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			logger.Error(ctx, "telemetry_shutdown_failed", "Failed to flush traces", err, nil)
		}
	}()

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "storage_init_failed", "Failed to initialize storage", err, nil)
		return err
	}
	defer backend.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	rdb, err := redis.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	m := metrics.New()
	svc := service.NewProjectionService(
		logger, m, backend.UoW, backend.Rides, backend.Bookings,
		redis.NewStatsCache(rdb, cfg.RedisTTL()), rmq,
	)

	if metricsPort > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", metricsPort),
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "metrics_server_error", "Metrics listener terminated", err, map[string]any{"port": metricsPort})
			}
		}()
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shCtx)
		}()
	}

	logger.Info(ctx, "service_started", "Projection worker started", map[string]any{
		"prefetch":     prefetch,
		"metrics_port": metricsPort,
	})

	err = svc.Run(ctx, prefetch)
	logger.Info(ctx, "service_stopping", "Projection worker stopped", nil)
	return err
}

// checkConfig rejects setups where the worker would project nothing.
// The in-process store is private to the booking service, so the worker needs Postgres.
func checkConfig(cfg *config.Config) error {
	var errs []error
	if cfg.Storage.Driver != config.DriverPostgres {
		errs = append(errs, fmt.Errorf("storage.driver must be %q, got %q", config.DriverPostgres, cfg.Storage.Driver))
	}
	if !cfg.RabbitMQ.Enabled {
		errs = append(errs, errors.New("rabbitmq.enabled must be true"))
	}
	if !cfg.Redis.Enabled {
		errs = append(errs, errors.New("redis.enabled must be true"))
	}
	return errors.Join(errs...)
}
