package postgres

import (
	"context"
	"fmt"
	"time"

	"carpool/internal/domain/booking"
	"carpool/internal/domain/ride"
	"carpool/internal/ports"

	"github.com/jackc/pgx/v5"
)

// BookingRepo persists bookings using pgx and plain SQL.
type BookingRepo struct{}

// NewBookingRepo constructs a new BookingRepo.
func NewBookingRepo() ports.BookingRepository {
	return &BookingRepo{}
}

const bookingColumns = `
	b.id, b.created_at, b.updated_at, b.ride_id, b.passenger_id,
	b.seats_requested, b.total_amount, b.status, b.message`

// Create inserts a booking row and fills the generated id and timestamps.
func (repo *BookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (ride_id, passenger_id, seats_requested, total_amount, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		b.RideID,
		b.PassengerID,
		b.SeatsRequested,
		b.TotalAmount,
		b.Status.String(),
		b.Message,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKey {
			return ride.ErrRideNotFound
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking without locking it.
func (repo *BookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return repo.getOne(ctx, `SELECT`+bookingColumns+` FROM bookings b WHERE b.id = $1`, id)
}

// GetForUpdate fetches a booking and locks its row. Lock the owning ride first.
func (repo *BookingRepo) GetForUpdate(ctx context.Context, id string) (*booking.Booking, error) {
	return repo.getOne(ctx, `SELECT`+bookingColumns+` FROM bookings b WHERE b.id = $1 FOR UPDATE`, id)
}

// UpdateStatus sets the booking status.
func (repo *BookingRepo) UpdateStatus(ctx context.Context, id string, status booking.Status, updatedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`, status.String(), updatedAt, id)
	if noRow(err) {
		return booking.ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// ListByPassenger returns the passenger's bookings, newest first.
func (repo *BookingRepo) ListByPassenger(ctx context.Context, passengerID string) ([]*booking.Booking, error) {
	return repo.getMany(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings b
		WHERE b.passenger_id = $1
		ORDER BY b.created_at DESC, b.id
	`, passengerID)
}

// ListByRide returns the ride's bookings, newest first.
func (repo *BookingRepo) ListByRide(ctx context.Context, rideID string) ([]*booking.Booking, error) {
	return repo.getMany(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings b
		WHERE b.ride_id = $1
		ORDER BY b.created_at DESC, b.id
	`, rideID)
}

// ListByDriver returns bookings on every ride of the driver, newest first.
func (repo *BookingRepo) ListByDriver(ctx context.Context, driverID string) ([]*booking.Booking, error) {
	return repo.getMany(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings b
		JOIN rides r ON r.id = b.ride_id
		WHERE r.driver_id = $1
		ORDER BY b.created_at DESC, b.id
	`, driverID)
}

// CountByRide returns how many bookings reference the ride, whatever their status.
func (repo *BookingRepo) CountByRide(ctx context.Context, rideID string) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE ride_id = $1`, rideID).Scan(&n)
	if noRow(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

// --- helpers ---

func (repo *BookingRepo) getOne(ctx context.Context, query, id string) (*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	out, err := scanBooking(tx.QueryRow(ctx, query, id))
	if noRow(err) {
		return nil, booking.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select booking: %w", err)
	}
	return out, nil
}

func (repo *BookingRepo) getMany(ctx context.Context, query string, args ...any) ([]*booking.Booking, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if noRow(err) {
		return []*booking.Booking{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]*booking.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		if noRow(err) {
			return []*booking.Booking{}, nil
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		out    booking.Booking
		status string
	)
	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.RideID, &out.PassengerID,
		&out.SeatsRequested, &out.TotalAmount, &status, &out.Message,
	)
	if err != nil {
		return nil, err
	}
	out.Status = booking.Status(status)
	return &out, nil
}
