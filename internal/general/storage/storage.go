package storage

import (
	"context"
	"fmt"

	"carpool/internal/general/config"
	"carpool/internal/general/logger"
	"carpool/internal/general/memstore"
	"carpool/internal/general/postgres"
	"carpool/internal/ports"
)

// Backend bundles the unit of work and repositories of one storage driver.
type Backend struct {
	Driver   string
	UoW      ports.UnitOfWork
	Rides    ports.RideRepository
	Bookings ports.BookingRepository
	Users    ports.UserRepository
	Events   ports.BookingEventRepository

	close func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open builds the backend selected by cfg.Storage.Driver. Postgres is migrated before use.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{
			Driver:   config.DriverPostgres,
			UoW:      postgres.NewUnitOfWork(pool),
			Rides:    postgres.NewRideRepo(),
			Bookings: postgres.NewBookingRepo(),
			Users:    postgres.NewUserRepo(),
			Events:   postgres.NewEventRepo(),
			close:    pool.Close,
		}, nil

	case config.DriverMemory:
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// NewMemory returns a process-local backend. Data is lost on exit.
func NewMemory() *Backend {
	s := memstore.New()
	return &Backend{
		Driver:   config.DriverMemory,
		UoW:      memstore.NewUnitOfWork(s),
		Rides:    memstore.NewRideRepo(s),
		Bookings: memstore.NewBookingRepo(s),
		Users:    memstore.NewUserRepo(s),
		Events:   memstore.NewEventRepo(s),
	}
}
