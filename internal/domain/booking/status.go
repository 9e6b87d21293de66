package booking

import (
	"errors"
	"strings"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var ErrInvalidStatus = errors.New("invalid booking status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed booking status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo reports whether the transition table has an edge status -> next.
func (status Status) CanTransitionTo(next Status) bool {
	_, ok := Lookup(status, next)
	return ok
}

// Terminal indicates that no transition leaves status.
func (status Status) Terminal() bool {
	return len(transitions[status]) == 0
}

// HoldsSeats reports whether a booking in this status counts against ride capacity.
func (status Status) HoldsSeats() bool {
	return status == StatusConfirmed || status == StatusCompleted
}
