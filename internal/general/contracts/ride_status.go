package contracts

import "time"

// RideStatusMessage is published by the booking service after a ride status change commits.
// Routing key: "ride.status.{status}" on ExchangeBookingTopic.
type RideStatusMessage struct {
	Kind      Kind      `json:"kind"`
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id"`
	Status    string    `json:"status"` // COMPLETED|CANCELLED
	Timestamp time.Time `json:"timestamp"`

	// CancelledBookings lists bookings the ride cancellation moved to CANCELLED.
	CancelledBookings []string `json:"cancelled_bookings,omitempty"`
	SeatsAvailable    int      `json:"seats_available"`
	Envelope
}

// RouteKey returns the routing key for the message.
func (m RideStatusMessage) RouteKey() string {
	return RouteRideStatusPrefix + m.Status
}
