package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"carpool/internal/general/config"
	"carpool/internal/general/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName = "carpool"

	// gen_random_uuid() is built in from PostgreSQL 13 on; the schema defaults rely on it.
	minServerVersionNum = 130000
)

// NewPool configures pgxpool from cfg, verifies connectivity and the server version, and returns the pool.
func NewPool(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()

	// one-time sanity log (do not print the password)
	logger.Info(ctx, "db_config_check", "Effective DB connection parameters", map[string]any{
		"host":                 cfg.Database.Host,
		"port":                 cfg.Database.Port,
		"user":                 cfg.Database.User,
		"database":             cfg.Database.Name,
		"password_empty":       cfg.Database.Password == "",
		"sslmode":              cfg.Database.SSLMode,
		"max_conns":            cfg.Database.MaxConns,
		"lock_timeout_ms":      cfg.Database.LockTimeoutMS,
		"statement_timeout_ms": cfg.Database.StatementTimeoutMS,
	})

	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	// verify connectivity with a bounded timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	var version string
	if err := pool.QueryRow(pingCtx, `SHOW server_version_num`).Scan(&version); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres server version: %w", err)
	}
	if err := checkServerVersion(version); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info(ctx, "db_connected", "Connected to PostgreSQL database", map[string]any{
		"duration_ms":        time.Since(start).Milliseconds(),
		"server_version_num": version,
	})

	return pool, nil
}

// poolConfig builds the pool settings. Every session gets the lock and statement timeouts,
// so a booking queued behind a ride row lock fails instead of waiting past the request deadline.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port)),
		Path:   "/" + cfg.Database.Name,
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
	}
	q := url.Values{}
	q.Set("sslmode", cfg.Database.SSLMode)
	u.RawQuery = q.Encode()

	pcfg, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}

	pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = make(map[string]string, 4)
	}
	params := pcfg.ConnConfig.RuntimeParams
	params["timezone"] = "UTC"
	params["application_name"] = applicationName
	params["lock_timeout"] = strconv.Itoa(cfg.Database.LockTimeoutMS) + "ms"
	params["statement_timeout"] = strconv.Itoa(cfg.Database.StatementTimeoutMS) + "ms"

	pcfg.MaxConns = cfg.Database.MaxConns
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute

	return pcfg, nil
}

func checkServerVersion(versionNum string) error {
	n, err := strconv.Atoi(versionNum)
	if err != nil {
		return fmt.Errorf("postgres server_version_num %q: %w", versionNum, err)
	}
	if n < minServerVersionNum {
		return fmt.Errorf("postgres 13 or newer is required, server reports %d", n)
	}
	return nil
}
