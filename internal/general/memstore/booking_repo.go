package memstore

import (
	"context"
	"sort"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/ports"

	"github.com/google/uuid"
)

// BookingRepo stores bookings in a Store.
type BookingRepo struct {
	s *Store
}

// NewBookingRepo constructs a new BookingRepo.
func NewBookingRepo(s *Store) ports.BookingRepository {
	return &BookingRepo{s: s}
}

// Create inserts b, assigning an id if it has none.
func (repo *BookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := t.lock(ctx, bookingKey(b.ID)); err != nil {
		return err
	}

	id := b.ID
	repo.s.mu.Lock()
	repo.s.bookings[id] = *b
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		delete(repo.s.bookings, id)
		repo.s.mu.Unlock()
	})
	return nil
}

// GetByID returns a copy of the booking without locking it.
func (repo *BookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	b, ok := repo.s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

// GetForUpdate locks the booking until the transaction ends and returns its current state.
func (repo *BookingRepo) GetForUpdate(ctx context.Context, id string) (*booking.Booking, error) {
	t, err := mustTx(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, bookingKey(id)); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

// UpdateStatus sets the booking status.
func (repo *BookingRepo) UpdateStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, bookingKey(id)); err != nil {
		return err
	}

	repo.s.mu.Lock()
	prev, ok := repo.s.bookings[id]
	if !ok {
		repo.s.mu.Unlock()
		return booking.ErrBookingNotFound
	}
	next := prev
	next.Status = status
	next.UpdatedAt = updatedAt
	repo.s.bookings[id] = next
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		repo.s.bookings[id] = prev
		repo.s.mu.Unlock()
	})
	return nil
}

// ListByPassenger returns a passenger's bookings, newest first.
func (repo *BookingRepo) ListByPassenger(ctx context.Context, passengerID string) ([]*booking.Booking, error) {
	return repo.filter(func(b *booking.Booking) bool { return b.PassengerID == passengerID }), nil
}

// ListByRide returns the bookings of one ride, newest first.
func (repo *BookingRepo) ListByRide(ctx context.Context, rideID string) ([]*booking.Booking, error) {
	return repo.filter(func(b *booking.Booking) bool { return b.RideID == rideID }), nil
}

// ListByDriver returns the bookings on every ride owned by driverID, newest first.
func (repo *BookingRepo) ListByDriver(ctx context.Context, driverID string) ([]*booking.Booking, error) {
	repo.s.mu.RLock()
	owned := make(map[string]struct{})
	for id, r := range repo.s.rides {
		if r.DriverID == driverID {
			owned[id] = struct{}{}
		}
	}
	repo.s.mu.RUnlock()

	return repo.filter(func(b *booking.Booking) bool {
		_, ok := owned[b.RideID]
		return ok
	}), nil
}

// CountByRide counts bookings in any status that reference rideID.
func (repo *BookingRepo) CountByRide(ctx context.Context, rideID string) (int, error) {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	n := 0
	for _, b := range repo.s.bookings {
		if b.RideID == rideID {
			n++
		}
	}
	return n, nil
}

func (repo *BookingRepo) filter(keep func(b *booking.Booking) bool) []*booking.Booking {
	repo.s.mu.RLock()
	out := make([]*booking.Booking, 0)
	for _, b := range repo.s.bookings {
		if keep(&b) {
			out = append(out, &b)
		}
	}
	repo.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
