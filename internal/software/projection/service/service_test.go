package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/general/contracts"
	"carpool/internal/general/logger"
	"carpool/internal/general/memstore"
	"carpool/internal/general/metrics"
	"carpool/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu    sync.Mutex
	stats map[string]booking.RideStats
	err   error
}

func (c *fakeCache) Get(_ context.Context, rideID string) (booking.RideStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[rideID]
	return s, ok, nil
}

func (c *fakeCache) Set(_ context.Context, stats booking.RideStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.stats[stats.RideID] = stats
	return nil
}

func (c *fakeCache) Delete(_ context.Context, rideID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stats, rideID)
	return nil
}

// fakeConsumer feeds bodies to the handler once, then blocks until ctx is done.
type fakeConsumer struct {
	bodies  [][]byte
	results []error
	queue   string
}

func (c *fakeConsumer) Consume(ctx context.Context, queue, _ string, _ int, handler func(context.Context, []byte) error) error {
	c.queue = queue
	for _, b := range c.bodies {
		c.results = append(c.results, handler(ctx, b))
	}
	c.bodies = nil
	<-ctx.Done()
	return nil
}

type fixture struct {
	svc      *projectionService
	uow      ports.UnitOfWork
	rides    ports.RideRepository
	bookings ports.BookingRepository
	cache    *fakeCache
	consumer *fakeConsumer
}

func newFixture() *fixture {
	store := memstore.New()
	f := &fixture{
		uow:      memstore.NewUnitOfWork(store),
		rides:    memstore.NewRideRepo(store),
		bookings: memstore.NewBookingRepo(store),
		cache:    &fakeCache{stats: make(map[string]booking.RideStats)},
		consumer: &fakeConsumer{},
	}
	f.svc = NewProjectionService(logger.Nop(), metrics.New(), f.uow, f.rides, f.bookings, f.cache, f.consumer).(*projectionService)
	return f
}

// seed stores a ride with one confirmed and one pending booking.
func (f *fixture) seed(t *testing.T) *ride.Ride {
	t.Helper()
	now := time.Now().UTC()
	r, err := ride.NewRide("driver-1", ride.Details{
		From:         "Almaty",
		To:           "Taraz",
		DepartureAt:  now.Add(24 * time.Hour),
		Capacity:     4,
		PricePerSeat: 10,
		Policy:       ride.DefaultPolicy(),
	}, now)
	require.NoError(t, err)

	require.NoError(t, f.uow.WithinTx(context.Background(), func(ctx context.Context) error {
		if err := f.rides.Create(ctx, r); err != nil {
			return err
		}
		confirmed, err := booking.NewBooking(r, "p-1", 2, "", now)
		if err != nil {
			return err
		}
		confirmed.Apply(booking.StatusConfirmed, now)
		if err := f.bookings.Create(ctx, confirmed); err != nil {
			return err
		}
		pending, err := booking.NewBooking(r, "p-2", 1, "", now)
		if err != nil {
			return err
		}
		return f.bookings.Create(ctx, pending)
	}))
	return r
}

func message(t *testing.T, rideID string) []byte {
	t.Helper()
	body, err := json.Marshal(contracts.BookingStatusMessage{
		Kind:   contracts.KindBookingStatus,
		RideID: rideID,
		Status: "CONFIRMED",
	})
	require.NoError(t, err)
	return body
}

func TestRefreshStoresStats(t *testing.T) {
	f := newFixture()
	r := f.seed(t)

	stats, err := f.svc.Refresh(context.Background(), r.ID)
	require.NoError(t, err)
	want := booking.RideStats{RideID: r.ID, BookingsCount: 2, PendingCount: 1, SeatsBooked: 2, Revenue: 20}
	assert.Equal(t, want, stats)

	cached, ok, _ := f.cache.Get(context.Background(), r.ID)
	require.True(t, ok)
	assert.Equal(t, want, cached)
}

func TestRefreshDropsDeletedRide(t *testing.T) {
	f := newFixture()
	f.cache.stats["gone"] = booking.RideStats{RideID: "gone", BookingsCount: 3}

	stats, err := f.svc.Refresh(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, booking.RideStats{RideID: "gone"}, stats)

	_, ok, _ := f.cache.Get(context.Background(), "gone")
	assert.False(t, ok)
}

func TestHandleMessage(t *testing.T) {
	f := newFixture()
	r := f.seed(t)

	require.NoError(t, f.svc.HandleMessage(context.Background(), message(t, r.ID)))
	_, ok, _ := f.cache.Get(context.Background(), r.ID)
	assert.True(t, ok)

	// malformed bodies are acknowledged and dropped
	assert.NoError(t, f.svc.HandleMessage(context.Background(), []byte("{")))
	assert.NoError(t, f.svc.HandleMessage(context.Background(), []byte(`{"kind":"ride_status"}`)))

	f.cache.err = errors.New("redis down")
	assert.Error(t, f.svc.HandleMessage(context.Background(), message(t, r.ID)))
}

func TestRunConsumesProjectionQueue(t *testing.T) {
	f := newFixture()
	r := f.seed(t)
	f.consumer.bodies = [][]byte{message(t, r.ID), message(t, r.ID)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx, 5) }()

	require.Eventually(t, func() bool {
		_, ok, _ := f.cache.Get(context.Background(), r.ID)
		return ok
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, contracts.QueueRideStatsProjection, f.consumer.queue)
	assert.Equal(t, []error{nil, nil}, f.consumer.results)
}
