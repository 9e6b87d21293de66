package service

import (
	"time"

	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/ports"
)

const producer = "booking-service"

// reservationService sequences ride and booking requests against the inventory and the lifecycle rules.
type reservationService struct {
	logger   *logger.Logger
	metrics  *metrics.Metrics
	uow      ports.UnitOfWork
	rides    ports.RideRepository
	bookings ports.BookingRepository
	users    ports.UserRepository
	events   ports.BookingEventRepository
	pub      ports.Publisher  // nil disables fan-out
	cache    ports.StatsCache // nil disables the stats projection

	inventory ports.Inventory
	ratings   ports.RatingAggregator
	now       func() time.Time
}

// NewReservationService creates a new instance of the ReservationService with the provided dependencies.
func NewReservationService(
	logger *logger.Logger,
	metrics *metrics.Metrics,
	uow ports.UnitOfWork,
	rides ports.RideRepository,
	bookings ports.BookingRepository,
	users ports.UserRepository,
	events ports.BookingEventRepository,
	pub ports.Publisher,
	cache ports.StatsCache,
) ports.ReservationService {
	return newReservationService(logger, metrics, uow, rides, bookings, users, events, pub, cache,
		func() time.Time { return time.Now().UTC() })
}

func newReservationService(
	logger *logger.Logger,
	metrics *metrics.Metrics,
	uow ports.UnitOfWork,
	rides ports.RideRepository,
	bookings ports.BookingRepository,
	users ports.UserRepository,
	events ports.BookingEventRepository,
	pub ports.Publisher,
	cache ports.StatsCache,
	now func() time.Time,
) *reservationService {
	return &reservationService{
		logger:    logger,
		metrics:   metrics,
		uow:       uow,
		rides:     rides,
		bookings:  bookings,
		users:     users,
		events:    events,
		pub:       pub,
		cache:     cache,
		inventory: newSeatInventory(logger, metrics, uow, rides, now),
		ratings:   newRatingAggregator(logger, metrics, uow, users, now),
		now:       now,
	}
}
