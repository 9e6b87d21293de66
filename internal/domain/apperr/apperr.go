package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a domain failure independent of the entity it concerns.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindForbidden             Kind = "FORBIDDEN"
	KindInvalidTransition     Kind = "INVALID_TRANSITION"
	KindInsufficientCapacity  Kind = "INSUFFICIENT_CAPACITY"
	KindRideNotActive         Kind = "RIDE_NOT_ACTIVE"
	KindInvalidSeatCount      Kind = "INVALID_SEAT_COUNT"
	KindSelfBookingNotAllowed Kind = "SELF_BOOKING_NOT_ALLOWED"
	KindInvalidRating         Kind = "INVALID_RATING"
	KindValidation            Kind = "VALIDATION"
	KindConflict              Kind = "CONFLICT"
)

// Error is a typed domain failure. Domain packages declare their sentinels with New.
type Error struct {
	Kind    Kind
	Message string
}

// Kind-level sentinels. errors.Is(err, ErrNotFound) matches every not-found sentinel.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrInsufficientCapacity = &Error{Kind: KindInsufficientCapacity}
)

// New builds a domain sentinel of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches identical sentinels, and kind-level sentinels (empty message) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return t.Kind == e.Kind
	}
	return t == e
}

// KindOf returns the kind of the first domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// HTTPStatus maps a kind to the status code the HTTP adapter renders.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidTransition, KindInsufficientCapacity, KindRideNotActive, KindConflict:
		return http.StatusConflict
	case KindInvalidSeatCount, KindSelfBookingNotAllowed, KindInvalidRating, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
