package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"carpool/internal/domain/ride"
	"carpool/internal/ports"

	"github.com/google/uuid"
)

// RideRepo stores rides in a Store.
type RideRepo struct {
	s *Store
}

// NewRideRepo constructs a new RideRepo.
func NewRideRepo(s *Store) ports.RideRepository {
	return &RideRepo{s: s}
}

// Create inserts r, assigning an id if it has none.
func (repo *RideRepo) Create(ctx context.Context, r *ride.Ride) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := t.lock(ctx, rideKey(r.ID)); err != nil {
		return err
	}

	id := r.ID
	repo.s.mu.Lock()
	repo.s.rides[id] = *r
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		delete(repo.s.rides, id)
		repo.s.mu.Unlock()
	})
	return nil
}

// GetByID returns a copy of the ride without locking it.
func (repo *RideRepo) GetByID(ctx context.Context, id string) (*ride.Ride, error) {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	r, ok := repo.s.rides[id]
	if !ok {
		return nil, ride.ErrRideNotFound
	}
	return &r, nil
}

// GetForUpdate locks the ride until the transaction ends and returns its current state.
func (repo *RideRepo) GetForUpdate(ctx context.Context, id string) (*ride.Ride, error) {
	t, err := mustTx(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, rideKey(id)); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

// UpdateSeats sets seats_available on a ride locked by this transaction.
func (repo *RideRepo) UpdateSeats(ctx context.Context, id string, seatsAvailable int, updatedAt time.Time) error {
	return repo.mutate(ctx, id, func(r *ride.Ride) {
		r.SeatsAvailable = seatsAvailable
		r.UpdatedAt = updatedAt
	})
}

// UpdateStatus sets the ride status.
func (repo *RideRepo) UpdateStatus(ctx context.Context, id string, status ride.Status, updatedAt time.Time) error {
	return repo.mutate(ctx, id, func(r *ride.Ride) {
		r.Status = status
		r.UpdatedAt = updatedAt
	})
}

// Delete removes the ride.
func (repo *RideRepo) Delete(ctx context.Context, id string) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, rideKey(id)); err != nil {
		return err
	}

	repo.s.mu.Lock()
	prev, ok := repo.s.rides[id]
	if ok {
		delete(repo.s.rides, id)
	}
	repo.s.mu.Unlock()
	if !ok {
		return ride.ErrRideNotFound
	}

	t.onRollback(func() {
		repo.s.mu.Lock()
		repo.s.rides[id] = prev
		repo.s.mu.Unlock()
	})
	return nil
}

// Search returns active rides with free seats matching q, soonest departure first.
func (repo *RideRepo) Search(ctx context.Context, q ports.RideQuery) ([]*ride.Ride, error) {
	from := strings.ToLower(strings.TrimSpace(q.From))
	to := strings.ToLower(strings.TrimSpace(q.To))

	out := repo.filter(func(r *ride.Ride) bool {
		if r.Status != ride.StatusActive || r.SeatsAvailable <= 0 {
			return false
		}
		if from != "" && !strings.Contains(strings.ToLower(r.From), from) {
			return false
		}
		if to != "" && !strings.Contains(strings.ToLower(r.To), to) {
			return false
		}
		if !q.Date.IsZero() && !sameDay(r.DepartureAt, q.Date) {
			return false
		}
		return true
	})
	sortByDeparture(out)
	return out, nil
}

// ListActive returns active rides with free seats departing at or after departingFrom.
func (repo *RideRepo) ListActive(ctx context.Context, departingFrom time.Time) ([]*ride.Ride, error) {
	out := repo.filter(func(r *ride.Ride) bool {
		return r.Status == ride.StatusActive && r.SeatsAvailable > 0 && !r.DepartureAt.Before(departingFrom)
	})
	sortByDeparture(out)
	return out, nil
}

// ListByDriver returns every ride of a driver, newest first.
func (repo *RideRepo) ListByDriver(ctx context.Context, driverID string) ([]*ride.Ride, error) {
	out := repo.filter(func(r *ride.Ride) bool { return r.DriverID == driverID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// --- helpers ---

// mutate applies fn to a ride the transaction holds the lock for, journaling the previous value.
func (repo *RideRepo) mutate(ctx context.Context, id string, fn func(r *ride.Ride)) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, rideKey(id)); err != nil {
		return err
	}

	repo.s.mu.Lock()
	prev, ok := repo.s.rides[id]
	if !ok {
		repo.s.mu.Unlock()
		return ride.ErrRideNotFound
	}
	next := prev
	fn(&next)
	repo.s.rides[id] = next
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		repo.s.rides[id] = prev
		repo.s.mu.Unlock()
	})
	return nil
}

func (repo *RideRepo) filter(keep func(r *ride.Ride) bool) []*ride.Ride {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	out := make([]*ride.Ride, 0)
	for _, r := range repo.s.rides {
		if keep(&r) {
			out = append(out, &r)
		}
	}
	return out
}

func sortByDeparture(rides []*ride.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].DepartureAt.Equal(rides[j].DepartureAt) {
			return rides[i].ID < rides[j].ID
		}
		return rides[i].DepartureAt.Before(rides[j].DepartureAt)
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
