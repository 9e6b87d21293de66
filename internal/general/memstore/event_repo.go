package memstore

import (
	"context"
	"maps"
	"slices"

	"carpool/internal/domain/booking"
	"carpool/internal/ports"

	"github.com/google/uuid"
)

// EventRepo appends booking events to a Store.
type EventRepo struct {
	s *Store
}

// NewEventRepo constructs a new EventRepo.
func NewEventRepo(s *Store) ports.BookingEventRepository {
	return &EventRepo{s: s}
}

// Append records e inside the current transaction.
func (repo *EventRepo) Append(ctx context.Context, e *booking.Event) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	stored := *e
	stored.Data = maps.Clone(e.Data)

	repo.s.mu.Lock()
	repo.s.events = append(repo.s.events, stored)
	repo.s.mu.Unlock()

	id := e.ID
	t.onRollback(func() {
		repo.s.mu.Lock()
		repo.s.events = slices.DeleteFunc(repo.s.events, func(ev booking.Event) bool { return ev.ID == id })
		repo.s.mu.Unlock()
	})
	return nil
}

// ListByRide returns the events of a ride in append order.
func (repo *EventRepo) ListByRide(ctx context.Context, rideID string) ([]*booking.Event, error) {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	out := make([]*booking.Event, 0)
	for _, ev := range repo.s.events {
		if ev.RideID == rideID {
			ev.Data = maps.Clone(ev.Data)
			out = append(out, &ev)
		}
	}
	return out, nil
}
