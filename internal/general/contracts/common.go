package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope adds cross-cutting headers all messages may carry.
type Envelope struct {
	MessageID     string    `json:"message_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"` // request id of the HTTP call that caused it
	Producer      string    `json:"producer,omitempty"`       // e.g. "booking-service"
	SentAt        time.Time `json:"sent_at,omitempty"`
}

// Kind tells consumers which message type a body holds without a second decode.
type Kind string

const (
	KindBookingStatus Kind = "booking_status"
	KindRideStatus    Kind = "ride_status"
)

// header is the part every message shares.
type header struct {
	Kind   Kind   `json:"kind"`
	RideID string `json:"ride_id"`
}

// Peek reads the kind and ride id of an encoded message.
func Peek(body []byte) (Kind, string, error) {
	var h header
	if err := json.Unmarshal(body, &h); err != nil {
		return "", "", fmt.Errorf("decode message header: %w", err)
	}
	if h.RideID == "" {
		return h.Kind, "", fmt.Errorf("message of kind %q has no ride_id", h.Kind)
	}
	return h.Kind, h.RideID, nil
}
