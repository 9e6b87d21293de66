package booking

import (
	"math"
	"strings"
	"time"

	"carpool/internal/domain/apperr"
	"carpool/internal/domain/ride"
)

// Booking is a passenger's claim on seats of one ride.
type Booking struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// References
	RideID      string
	PassengerID string

	// Seats & price, frozen at creation
	SeatsRequested int
	TotalAmount    float64

	Status  Status
	Message string
}

var (
	ErrBookingNotFound           = apperr.New(apperr.KindNotFound, "booking not found")
	ErrInvalidTransition         = apperr.New(apperr.KindInvalidTransition, "booking status transition not allowed")
	ErrForbidden                 = apperr.New(apperr.KindForbidden, "caller is not allowed to change this booking")
	ErrSelfBookingNotAllowed     = apperr.New(apperr.KindSelfBookingNotAllowed, "drivers cannot book their own ride")
	ErrCompletionBeforeDeparture = apperr.New(apperr.KindInvalidTransition, "booking cannot be completed before departure")
	ErrPassengerRequired         = apperr.New(apperr.KindValidation, "passenger id is required")
	ErrRatingNeedsCompletion     = apperr.New(apperr.KindValidation, "a passenger rating is only accepted when completing a booking")
)

// NewBooking builds a PENDING booking against r. No seats are reserved here.
func NewBooking(r *ride.Ride, passengerID string, seats int, message string, now time.Time) (*Booking, error) {
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		return nil, ErrPassengerRequired
	}
	if passengerID == r.DriverID {
		return nil, ErrSelfBookingNotAllowed
	}
	if seats <= 0 || seats > r.Capacity {
		return nil, ride.ErrInvalidSeatCount
	}
	if r.Status != ride.StatusActive {
		return nil, ride.ErrRideNotActive
	}
	if seats > r.SeatsAvailable {
		return nil, ride.ErrInsufficientCapacity
	}

	return &Booking{
		CreatedAt:      now,
		UpdatedAt:      now,
		RideID:         r.ID,
		PassengerID:    passengerID,
		SeatsRequested: seats,
		TotalAmount:    roundCents(float64(seats) * r.PricePerSeat),
		Status:         StatusPending,
		Message:        strings.TrimSpace(message),
	}, nil
}

// ActorFor resolves the caller's role. driverID is the owning ride's driver.
func (b *Booking) ActorFor(actorID, driverID string) (Actor, error) {
	switch actorID {
	case driverID:
		return ActorDriver, nil
	case b.PassengerID:
		return ActorPassenger, nil
	default:
		return 0, ErrForbidden
	}
}

// Plan checks that actor may move the booking to next and returns the edge.
func (b *Booking) Plan(next Status, actor Actor) (Rule, error) {
	rule, ok := Lookup(b.Status, next)
	if !ok {
		return Rule{}, ErrInvalidTransition
	}
	if !rule.Permits(actor) {
		return Rule{}, ErrForbidden
	}
	return rule, nil
}

// Apply records the new status. Callers run Plan and the rule's effect first.
func (b *Booking) Apply(next Status, now time.Time) {
	b.Status = next
	b.UpdatedAt = now
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
