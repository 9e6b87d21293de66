package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "CARPOOL_"

// loadDotEnv loads variables from path without overriding ones already set. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// applyEnv overlays CARPOOL_* variables onto cfg.
func applyEnv(cfg *Config) error {
	var problems []string

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s must be int", envPrefix, key))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s%s must be bool", envPrefix, key))
				return
			}
			*dst = b
		}
	}

	str("STORAGE_DRIVER", &cfg.Storage.Driver)

	str("DB_HOST", &cfg.Database.Host)
	num("DB_PORT", &cfg.Database.Port)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_NAME", &cfg.Database.Name)
	str("DB_SSLMODE", &cfg.Database.SSLMode)
	num("DB_LOCK_TIMEOUT_MS", &cfg.Database.LockTimeoutMS)
	num("DB_STATEMENT_TIMEOUT_MS", &cfg.Database.StatementTimeoutMS)

	flag("RABBITMQ_ENABLED", &cfg.RabbitMQ.Enabled)
	str("RABBITMQ_HOST", &cfg.RabbitMQ.Host)
	num("RABBITMQ_PORT", &cfg.RabbitMQ.Port)
	str("RABBITMQ_USER", &cfg.RabbitMQ.User)
	str("RABBITMQ_PASSWORD", &cfg.RabbitMQ.Password)

	flag("REDIS_ENABLED", &cfg.Redis.Enabled)
	str("REDIS_HOST", &cfg.Redis.Host)
	num("REDIS_PORT", &cfg.Redis.Port)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	num("REDIS_DB", &cfg.Redis.DB)
	num("REDIS_TTL_SECONDS", &cfg.Redis.TTLSeconds)

	num("BOOKING_SERVICE_PORT", &cfg.Services.BookingServicePort)
	str("JWT_SECRET_KEY", &cfg.JWT.SecretKey)
	str("TELEMETRY_EXPORTER", &cfg.Telemetry.Exporter)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}
