package storage

import (
	"context"
	"testing"

	"carpool/internal/general/config"
	"carpool/internal/general/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverMemory

	b, err := Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, config.DriverMemory, b.Driver)
	assert.NotNil(t, b.UoW)
	assert.NotNil(t, b.Rides)
	assert.NotNil(t, b.Bookings)
	assert.NotNil(t, b.Users)
	assert.NotNil(t, b.Events)
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "sqlite"

	_, err := Open(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "sqlite")
}
