package ride

import (
	"strings"
	"time"

	"carpool/internal/domain/apperr"
)

// Policy holds the driver's per-ride preferences.
type Policy struct {
	InstantBooking bool
	AllowSmoking   bool
	AllowPets      bool
	AllowFood      bool
}

// DefaultPolicy is applied when the driver does not say otherwise.
func DefaultPolicy() Policy {
	return Policy{InstantBooking: true, AllowFood: true}
}

// Ride is a seat offer published by a driver.
type Ride struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Owner, immutable after creation
	DriverID string

	// Route & schedule
	From        string
	To          string
	DepartureAt time.Time
	Stops       string

	// Seat inventory
	Capacity       int
	SeatsAvailable int
	PricePerSeat   float64

	// Vehicle & extras
	CarModel       string
	CarNumber      string
	AdditionalInfo string

	Policy Policy
	Status Status
}

// Details is the driver-provided part of a new ride.
type Details struct {
	From           string
	To             string
	DepartureAt    time.Time
	Stops          string
	Capacity       int
	PricePerSeat   float64
	CarModel       string
	CarNumber      string
	AdditionalInfo string
	Policy         Policy
}

var (
	ErrRideNotFound         = apperr.New(apperr.KindNotFound, "ride not found")
	ErrRideNotActive        = apperr.New(apperr.KindRideNotActive, "ride is not active")
	ErrInsufficientCapacity = apperr.New(apperr.KindInsufficientCapacity, "not enough seats available")
	ErrInvalidSeatCount     = apperr.New(apperr.KindInvalidSeatCount, "invalid seat count")
	ErrNotRideDriver        = apperr.New(apperr.KindForbidden, "only the ride driver may do this")
	ErrInvalidStatusChange  = apperr.New(apperr.KindInvalidTransition, "invalid ride status transition")
	ErrRideHasBookings      = apperr.New(apperr.KindConflict, "ride has bookings and cannot be deleted")
	ErrDriverRequired       = apperr.New(apperr.KindValidation, "driver id is required")
	ErrRouteRequired        = apperr.New(apperr.KindValidation, "from and to locations are required")
	ErrDepartureRequired    = apperr.New(apperr.KindValidation, "departure time is required")
	ErrPriceMustBePositive  = apperr.New(apperr.KindValidation, "price per seat must be greater than zero")
)

// NewRide creates an ACTIVE ride with every seat available.
func NewRide(driverID string, d Details, now time.Time) (*Ride, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverRequired
	}
	from, to := strings.TrimSpace(d.From), strings.TrimSpace(d.To)
	if from == "" || to == "" {
		return nil, ErrRouteRequired
	}
	if d.DepartureAt.IsZero() {
		return nil, ErrDepartureRequired
	}
	if d.Capacity <= 0 {
		return nil, ErrInvalidSeatCount
	}
	if d.PricePerSeat <= 0 {
		return nil, ErrPriceMustBePositive
	}

	return &Ride{
		CreatedAt:      now,
		UpdatedAt:      now,
		DriverID:       driverID,
		From:           from,
		To:             to,
		DepartureAt:    d.DepartureAt.UTC(),
		Stops:          strings.TrimSpace(d.Stops),
		Capacity:       d.Capacity,
		SeatsAvailable: d.Capacity,
		PricePerSeat:   d.PricePerSeat,
		CarModel:       strings.TrimSpace(d.CarModel),
		CarNumber:      strings.TrimSpace(d.CarNumber),
		AdditionalInfo: strings.TrimSpace(d.AdditionalInfo),
		Policy:         d.Policy,
		Status:         StatusActive,
	}, nil
}

// Reserve consumes seats. The caller must hold the ride's write lock.
func (r *Ride) Reserve(seats int) error {
	if seats <= 0 {
		return ErrInvalidSeatCount
	}
	if r.Status != StatusActive {
		return ErrRideNotActive
	}
	if r.SeatsAvailable < seats {
		return ErrInsufficientCapacity
	}
	r.SeatsAvailable -= seats
	return nil
}

// Release returns seats to the inventory, never beyond capacity.
// clamped reports that the release would have overflowed capacity.
func (r *Ride) Release(seats int) (clamped bool) {
	if seats <= 0 {
		return false
	}
	next := r.SeatsAvailable + seats
	if next > r.Capacity {
		next = r.Capacity
		clamped = true
	}
	r.SeatsAvailable = next
	return clamped
}

// SeatsBooked is the number of seats held by confirmed or completed bookings.
func (r *Ride) SeatsBooked() int {
	return r.Capacity - r.SeatsAvailable
}

// ChangeStatus moves the ride to next on behalf of actorID.
func (r *Ride) ChangeStatus(next Status, actorID string, now time.Time) error {
	if actorID != r.DriverID {
		return ErrNotRideDriver
	}
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidStatusChange
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}

// Departed reports whether the departure time has passed.
func (r *Ride) Departed(now time.Time) bool {
	return !now.Before(r.DepartureAt)
}
