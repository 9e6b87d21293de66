package contracts

import "time"

// BookingStatusMessage is published by the booking service after a booking is created or changes status.
// Routing key: "booking.status.{status}" on ExchangeBookingTopic.
type BookingStatusMessage struct {
	Kind           Kind      `json:"kind"`
	BookingID      string    `json:"booking_id"`
	RideID         string    `json:"ride_id"`
	PassengerID    string    `json:"passenger_id"`
	PreviousStatus string    `json:"previous_status,omitempty"` // empty on creation
	Status         string    `json:"status"`
	SeatsRequested int       `json:"seats_requested"`
	SeatsAvailable int       `json:"seats_available"`
	TotalAmount    float64   `json:"total_amount"`
	ActorID        string    `json:"actor_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}

// RouteKey returns the routing key for the message.
func (m BookingStatusMessage) RouteKey() string {
	return RouteBookingStatusPrefix + m.Status
}
