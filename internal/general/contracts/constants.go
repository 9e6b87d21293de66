package contracts

// Exchanges
const (
	ExchangeBookingTopic = "booking_topic"
	ExchangeDeadLetter   = "booking_dlx"
)

// Queues
const (
	QueueRideStatsProjection = "ride_stats_projection"
	QueueDeadLetter          = "ride_stats_projection.dlq"
)

// Routing patterns
const (
	RouteBookingStatusPrefix = "booking.status." // {status}
	RouteRideStatusPrefix    = "ride.status."    // {status}
)
