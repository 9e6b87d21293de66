package booking

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"time"
)

// EventType corresponds to the values allowed in booking_events.event_type.
type EventType string

const (
	EventBookingCreated   EventType = "BOOKING_CREATED"
	EventBookingConfirmed EventType = "BOOKING_CONFIRMED"
	EventBookingRejected  EventType = "BOOKING_REJECTED"
	EventBookingCancelled EventType = "BOOKING_CANCELLED"
	EventBookingCompleted EventType = "BOOKING_COMPLETED"
	EventRideCompleted    EventType = "RIDE_COMPLETED"
	EventRideCancelled    EventType = "RIDE_CANCELLED"
)

var (
	ErrInvalidEventType = errors.New("invalid booking event type")
	ErrRideIDRequired   = errors.New("ride id is required")
	ErrEventDataNil     = errors.New("event data must not be nil")
)

// Valid reports whether eventType is one of the allowed event type constants.
func (eventType EventType) Valid() bool {
	switch eventType {
	case EventBookingCreated,
		EventBookingConfirmed,
		EventBookingRejected,
		EventBookingCancelled,
		EventBookingCompleted,
		EventRideCompleted,
		EventRideCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the EventType.
func (eventType EventType) String() string {
	return string(eventType)
}

// EventFor maps a booking status to the event recorded when a booking enters it.
func EventFor(status Status) EventType {
	switch status {
	case StatusConfirmed:
		return EventBookingConfirmed
	case StatusRejected:
		return EventBookingRejected
	case StatusCancelled:
		return EventBookingCancelled
	case StatusCompleted:
		return EventBookingCompleted
	default:
		return EventBookingCreated
	}
}

// Event is an append-only audit record of a booking or ride change.
type Event struct {
	ID        string
	CreatedAt time.Time

	RideID    string
	BookingID string // empty for ride-level events

	Type EventType
	Data map[string]any
}

// NewEvent constructs a new Event.
func NewEvent(rideID, bookingID string, eventType EventType, data map[string]any, now time.Time) (*Event, error) {
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, ErrRideIDRequired
	}
	if !eventType.Valid() {
		return nil, ErrInvalidEventType
	}
	if data == nil {
		return nil, ErrEventDataNil
	}

	return &Event{
		CreatedAt: now,
		RideID:    rideID,
		BookingID: strings.TrimSpace(bookingID),
		Type:      eventType,
		Data:      maps.Clone(data),
	}, nil
}

// Validate mirrors the table constraints.
func (event *Event) Validate() error {
	if event.RideID == "" {
		return ErrRideIDRequired
	}
	if !event.Type.Valid() {
		return ErrInvalidEventType
	}
	if event.Data == nil {
		return ErrEventDataNil
	}
	return nil
}

// DataJSON returns event.Data encoded as JSON.
func (event *Event) DataJSON() ([]byte, error) {
	if event.Data == nil {
		return nil, ErrEventDataNil
	}
	return json.Marshal(event.Data)
}
