package booking

// RideStats is the read-side summary of a ride's bookings.
type RideStats struct {
	RideID        string  `json:"ride_id"`
	BookingsCount int     `json:"bookings_count"`
	PendingCount  int     `json:"pending_count"`
	SeatsBooked   int     `json:"seats_booked"`
	Revenue       float64 `json:"revenue"`
}

// Summarize folds the bookings of one ride into RideStats.
// Revenue counts only confirmed and completed bookings.
func Summarize(rideID string, bookings []*Booking) RideStats {
	stats := RideStats{RideID: rideID}
	for _, b := range bookings {
		if b.RideID != rideID {
			continue
		}
		stats.BookingsCount++
		if b.Status == StatusPending {
			stats.PendingCount++
		}
		if b.Status.HoldsSeats() {
			stats.SeatsBooked += b.SeatsRequested
			stats.Revenue += b.TotalAmount
		}
	}
	stats.Revenue = roundCents(stats.Revenue)
	return stats
}
