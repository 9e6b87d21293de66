package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

type Config struct {
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
		SSLMode  string `yaml:"sslmode"`
		MaxConns int32  `yaml:"max_conns"`

		LockTimeoutMS      int `yaml:"lock_timeout_ms"`
		StatementTimeoutMS int `yaml:"statement_timeout_ms"`
	} `yaml:"database"`
	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Redis struct {
		Enabled    bool   `yaml:"enabled"`
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`
	Services struct {
		BookingServicePort int `yaml:"booking_service"`
	} `yaml:"services"`
	JWT struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"jwt"`
	Telemetry struct {
		Exporter string `yaml:"exporter"`
	} `yaml:"telemetry"`
}

// LoadFromFile loads config from a YAML file, overlays the environment (and an optional .env file),
// applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// RedisTTL is the lifetime of cached projections.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Storage
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverPostgres
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	cfg.Database.SSLMode = strings.ToLower(strings.TrimSpace(cfg.Database.SSLMode))
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.LockTimeoutMS == 0 {
		cfg.Database.LockTimeoutMS = 3000
	}
	if cfg.Database.StatementTimeoutMS == 0 {
		cfg.Database.StatementTimeoutMS = 10000
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}

	// Services
	if cfg.Services.BookingServicePort == 0 {
		cfg.Services.BookingServicePort = 3000
	}

	// Telemetry
	cfg.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Exporter))
	if cfg.Telemetry.Exporter == "" {
		cfg.Telemetry.Exporter = ExporterNone
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	switch c.Storage.Driver {
	case DriverPostgres:
		if !validPort(c.Database.Port) {
			problems = append(problems, "database.port must be in 1..65535")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.database is required")
		}
		if c.Database.MaxConns < 1 {
			problems = append(problems, "database.max_conns must be >= 1")
		}
		if !validSSLMode(c.Database.SSLMode) {
			problems = append(problems, "database.sslmode must be one of disable, allow, prefer, require, verify-ca, verify-full")
		}
		if c.Database.LockTimeoutMS < 1 {
			problems = append(problems, "database.lock_timeout_ms must be >= 1")
		}
		if c.Database.StatementTimeoutMS < c.Database.LockTimeoutMS {
			problems = append(problems, "database.statement_timeout_ms must be >= database.lock_timeout_ms")
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.driver must be %q or %q", DriverPostgres, DriverMemory))
	}

	if c.RabbitMQ.Enabled {
		if !validPort(c.RabbitMQ.Port) {
			problems = append(problems, "rabbitmq.port must be in 1..65535")
		}
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}

	if c.Redis.Enabled {
		if !validPort(c.Redis.Port) {
			problems = append(problems, "redis.port must be in 1..65535")
		}
		if c.Redis.TTLSeconds < 1 {
			problems = append(problems, "redis.ttl_seconds must be >= 1")
		}
	}

	if !validPort(c.Services.BookingServicePort) {
		problems = append(problems, "services.booking_service must be in 1..65535")
	}

	if c.Telemetry.Exporter != ExporterNone && c.Telemetry.Exporter != ExporterStdout {
		problems = append(problems, fmt.Sprintf("telemetry.exporter must be %q or %q", ExporterNone, ExporterStdout))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func validSSLMode(m string) bool {
	switch m {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		return true
	}
	return false
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
