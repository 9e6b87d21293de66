package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRide(t *testing.T, uow ports.UnitOfWork, rides ports.RideRepository, capacity int) *ride.Ride {
	t.Helper()
	now := time.Now().UTC()
	r, err := ride.NewRide("driver-1", ride.Details{
		From:         "Almaty",
		To:           "Shymkent",
		DepartureAt:  now.Add(48 * time.Hour),
		Capacity:     capacity,
		PricePerSeat: 20,
		Policy:       ride.DefaultPolicy(),
	}, now)
	require.NoError(t, err)
	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return rides.Create(ctx, r)
	}))
	return r
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	events := NewEventRepo(s)
	r := seedRide(t, uow, rides, 3)

	boom := errors.New("boom")
	err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, rides.UpdateSeats(ctx, r.ID, 1, time.Now()))
		require.NoError(t, rides.UpdateStatus(ctx, r.ID, ride.StatusCancelled, time.Now()))
		ev, err := booking.NewEvent(r.ID, "", booking.EventRideCancelled, map[string]any{}, time.Now())
		require.NoError(t, err)
		require.NoError(t, events.Append(ctx, ev))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := rides.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.SeatsAvailable)
	assert.Equal(t, ride.StatusActive, got.Status)

	evs, err := events.ListByRide(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	r := seedRide(t, uow, rides, 2)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context) error {
			_ = rides.UpdateSeats(ctx, r.ID, 0, time.Now())
			panic("kaboom")
		})
	})

	got, err := rides.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SeatsAvailable)

	// the lock was released by the rollback
	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := rides.GetForUpdate(ctx, r.ID)
		return err
	}))
}

func TestNestedTxJoinsOuter(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	r := seedRide(t, uow, rides, 2)

	err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
		if _, err := rides.GetForUpdate(ctx, r.ID); err != nil {
			return err
		}
		// re-locking inside a nested unit of work must not deadlock
		return uow.WithinTx(ctx, func(ctx context.Context) error {
			_, err := rides.GetForUpdate(ctx, r.ID)
			return err
		})
	})
	require.NoError(t, err)
}

func TestGetForUpdateSerializesReadModifyWrite(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	r := seedRide(t, uow, rides, 50)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.WithinTx(context.Background(), func(ctx context.Context) error {
				cur, err := rides.GetForUpdate(ctx, r.ID)
				if err != nil {
					return err
				}
				return rides.UpdateSeats(ctx, r.ID, cur.SeatsAvailable-1, time.Now())
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := rides.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.SeatsAvailable)
}

func TestLockWaitHonoursContext(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	r := seedRide(t, uow, rides, 1)

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context) error {
			_, err := rides.GetForUpdate(ctx, r.ID)
			close(locked)
			<-done
			return err
		})
	}()
	<-locked
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := uow.WithinTx(ctx, func(ctx context.Context) error {
		_, err := rides.GetForUpdate(ctx, r.ID)
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWritesRequireTransaction(t *testing.T) {
	s := New()
	rides := NewRideRepo(s)

	err := rides.UpdateSeats(context.Background(), "x", 1, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transaction")

	_, err = rides.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ride.ErrRideNotFound)
}

func TestSearchAndListing(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	bookings := NewBookingRepo(s)

	a := seedRide(t, uow, rides, 2)
	b := seedRide(t, uow, rides, 1)
	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return rides.UpdateSeats(ctx, b.ID, 0, time.Now())
	}))

	found, err := rides.Search(context.Background(), ports.RideQuery{From: "alma", To: "SHYM", Date: a.DepartureAt})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	active, err := rides.ListActive(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	mine, err := rides.ListByDriver(context.Background(), "driver-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	bk := &booking.Booking{RideID: a.ID, PassengerID: "p", SeatsRequested: 1, Status: booking.StatusPending, CreatedAt: time.Now()}
	require.NoError(t, uow.WithinTx(context.Background(), func(ctx context.Context) error {
		return bookings.Create(ctx, bk)
	}))

	forDriver, err := bookings.ListByDriver(context.Background(), "driver-1")
	require.NoError(t, err)
	require.Len(t, forDriver, 1)
	assert.Equal(t, bk.ID, forDriver[0].ID)

	n, err := bookings.CountByRide(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func lockSlots(s *Store) int {
	s.locks.mu.Lock()
	defer s.locks.mu.Unlock()
	return len(s.locks.slots)
}

func TestLockSlotsAreDroppedAfterUse(t *testing.T) {
	s := New()
	uow := NewUnitOfWork(s)
	rides := NewRideRepo(s)
	r := seedRide(t, uow, rides, 4)

	for _, id := range []string{"missing-1", "missing-2", r.ID} {
		_ = uow.WithinTx(context.Background(), func(ctx context.Context) error {
			_, err := rides.GetForUpdate(ctx, id)
			return err
		})
	}
	assert.Equal(t, 0, lockSlots(s))

	// contended and abandoned waits clean up too
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = uow.WithinTx(context.Background(), func(ctx context.Context) error {
				_, err := rides.GetForUpdate(ctx, r.ID)
				return err
			})
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.locks.acquire(context.Background(), "held"))
	assert.ErrorIs(t, s.locks.acquire(ctx, "held"), context.Canceled)
	s.locks.release("held")

	assert.Equal(t, 0, lockSlots(s))
}
