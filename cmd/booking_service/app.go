package bookingservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"carpool/internal/general/config"
	"carpool/internal/general/jwt"
	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/general/rabbitmq"
	"carpool/internal/general/redis"
	"carpool/internal/general/storage"
	"carpool/internal/general/telemetry"
	"carpool/internal/ports"
	"carpool/internal/software/booking/handler"
	"carpool/internal/software/booking/service"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "booking-service"

// Run wires the booking service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context with a static request ID for startup logs
	logger := logger.New(serviceName)
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// tracing
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

	// storage: Postgres or the in-process store
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "storage_init_failed", "Failed to initialize storage", err, map[string]any{"driver": cfg.Storage.Driver})
		return err
	}
	defer backend.Close()

	// event fan-out is optional; without it the projection is computed on read
	var pub ports.Publisher
	if cfg.RabbitMQ.Enabled {
		rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
		if err != nil {
			logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()
		pub = rabbitmq.NewMQPublisher(rmq)
	}

	// stats cache
	var cache ports.StatsCache
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
			return err
		}
		defer rdb.Close()
		cache = redis.NewStatsCache(rdb, cfg.RedisTTL())
	}

	// set up the JWT manager and metrics
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)
	m := metrics.New()

	// set up the reservation service
	svc := service.NewReservationService(
		logger, m, backend.UoW,
		backend.Rides, backend.Bookings, backend.Users, backend.Events,
		pub, cache,
	)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	handler.NewBookingHTTPHandler(svc, logger, jwtManager).RegisterRoutes(mux)
	mux.Handle("GET /metrics", m.Handler())

	// concurrency limiter (global), then metrics and tracing around it
	root := otelhttp.NewHandler(m.Middleware(withConcurrencyLimit(maxConcurrent, mux)), serviceName)

	port := cfg.Services.BookingServicePort
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Booking Service started on port %d", port),
		map[string]any{
			"port":           port,
			"max_concurrent": maxConcurrent,
			"storage":        backend.Driver,
			"rabbitmq":       cfg.RabbitMQ.Enabled,
			"redis":          cfg.Redis.Enabled,
			"telemetry":      cfg.Telemetry.Exporter,
		},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "service_stopping", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": port})
			return err
		}
		return nil
	}
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
