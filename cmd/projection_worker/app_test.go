package projectionworker

import (
	"testing"

	"carpool/internal/general/config"

	"github.com/stretchr/testify/assert"
)

func TestCheckConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverMemory

	err := checkConfig(cfg)
	assert.ErrorContains(t, err, "storage.driver")
	assert.ErrorContains(t, err, "rabbitmq.enabled")
	assert.ErrorContains(t, err, "redis.enabled")

	cfg.Storage.Driver = config.DriverPostgres
	cfg.RabbitMQ.Enabled = true
	cfg.Redis.Enabled = true
	assert.NoError(t, checkConfig(cfg))
}
