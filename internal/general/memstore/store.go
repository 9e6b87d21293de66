package memstore

import (
	"sync"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
)

// Store keeps rides, bookings, users and events in memory.
// Entities are stored and returned by value so callers never share state with the store.
// Writers hold the row lock of the entity for the whole transaction; readers see the latest write.
type Store struct {
	mu       sync.RWMutex
	rides    map[string]ride.Ride
	bookings map[string]booking.Booking
	users    map[string]user.User
	events   []booking.Event

	locks *lockTable
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rides:    make(map[string]ride.Ride),
		bookings: make(map[string]booking.Booking),
		users:    make(map[string]user.User),
		locks:    newLockTable(),
	}
}

func rideKey(id string) string    { return "ride/" + id }
func bookingKey(id string) string { return "booking/" + id }
func userKey(id string) string    { return "user/" + id }
