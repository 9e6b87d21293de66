package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  user: carpool
  password: secret
  database: carpool
jwt:
  secret_key: "dev-secret"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3000, cfg.Services.BookingServicePort)
	assert.Equal(t, "dev-secret", cfg.JWT.SecretKey)
	assert.Equal(t, ExporterNone, cfg.Telemetry.Exporter)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, 300, cfg.Redis.TTLSeconds)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 3000, cfg.Database.LockTimeoutMS)
	assert.Equal(t, 10000, cfg.Database.StatementTimeoutMS)
}

func TestLoadFromFileMemoryDriverNeedsNoDatabase(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: MEMORY\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.NotEmpty(t, cfg.JWT.SecretKey)
}

func TestLoadFromFileCollectsProblems(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: postgres
database:
  sslmode: sometimes
  lock_timeout_ms: 5000
  statement_timeout_ms: 1000
rabbitmq:
  enabled: true
telemetry:
  exporter: jaeger
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "database.user is required")
	assert.Contains(t, msg, "rabbitmq.user is required")
	assert.Contains(t, msg, "telemetry.exporter")
	assert.Contains(t, msg, "database.sslmode")
	assert.Contains(t, msg, "database.statement_timeout_ms must be >= database.lock_timeout_ms")
}

func TestLoadFromFileRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "storage:\n  engine: memory\n")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: postgres\n")
	t.Setenv("CARPOOL_STORAGE_DRIVER", "memory")
	t.Setenv("CARPOOL_BOOKING_SERVICE_PORT", "8081")
	t.Setenv("CARPOOL_REDIS_ENABLED", "true")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 8081, cfg.Services.BookingServicePort)
	assert.True(t, cfg.Redis.Enabled)

	t.Setenv("CARPOOL_DB_PORT", "not-a-port")
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CARPOOL_DB_PORT must be int")
}
