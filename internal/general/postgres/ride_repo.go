package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carpool/internal/domain/ride"
	"carpool/internal/domain/user"
	"carpool/internal/ports"

	"github.com/jackc/pgx/v5"
)

// RideRepo persists rides using pgx and plain SQL.
type RideRepo struct{}

// NewRideRepo constructs a new RideRepo.
func NewRideRepo() ports.RideRepository {
	return &RideRepo{}
}

const rideColumns = `
	id, created_at, updated_at, driver_id, from_location, to_location, departure_at, stops,
	capacity, seats_available, price_per_seat, car_model, car_number, additional_info,
	instant_booking, allow_smoking, allow_pets, allow_food, status`

// Create inserts a new ride row and fills the generated id and timestamps.
func (repo *RideRepo) Create(ctx context.Context, r *ride.Ride) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO rides (
			driver_id, from_location, to_location, departure_at, stops,
			capacity, seats_available, price_per_seat, car_model, car_number, additional_info,
			instant_booking, allow_smoking, allow_pets, allow_food, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`,
		r.DriverID,
		r.From,
		r.To,
		r.DepartureAt,
		r.Stops,
		r.Capacity,
		r.SeatsAvailable,
		r.PricePerSeat,
		r.CarModel,
		r.CarNumber,
		r.AdditionalInfo,
		r.Policy.InstantBooking,
		r.Policy.AllowSmoking,
		r.Policy.AllowPets,
		r.Policy.AllowFood,
		r.Status.String(),
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKey {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

// GetByID fetches a ride by primary key without locking it.
func (repo *RideRepo) GetByID(ctx context.Context, id string) (*ride.Ride, error) {
	return repo.getOne(ctx, `SELECT`+rideColumns+` FROM rides WHERE id = $1`, id)
}

// GetForUpdate fetches a ride and locks its row until the transaction ends.
func (repo *RideRepo) GetForUpdate(ctx context.Context, id string) (*ride.Ride, error) {
	return repo.getOne(ctx, `SELECT`+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

// UpdateSeats writes seats_available. The row must already be locked by GetForUpdate.
func (repo *RideRepo) UpdateSeats(ctx context.Context, id string, seatsAvailable int, updatedAt time.Time) error {
	return repo.exec(ctx, `
		UPDATE rides
		SET seats_available = $1,
		    updated_at = $2
		WHERE id = $3
	`, seatsAvailable, updatedAt, id)
}

// UpdateStatus sets the ride status.
func (repo *RideRepo) UpdateStatus(ctx context.Context, id string, status ride.Status, updatedAt time.Time) error {
	return repo.exec(ctx, `
		UPDATE rides
		SET status = $1,
		    updated_at = $2
		WHERE id = $3
	`, status.String(), updatedAt, id)
}

// Delete removes the ride row.
func (repo *RideRepo) Delete(ctx context.Context, id string) error {
	return repo.exec(ctx, `DELETE FROM rides WHERE id = $1`, id)
}

// Search returns active rides with free seats matching q, soonest departure first.
func (repo *RideRepo) Search(ctx context.Context, q ports.RideQuery) ([]*ride.Ride, error) {
	var (
		where = []string{`status = 'ACTIVE'`, `seats_available > 0`}
		args  []any
	)
	if from := strings.TrimSpace(q.From); from != "" {
		args = append(args, "%"+from+"%")
		where = append(where, fmt.Sprintf("from_location ILIKE $%d", len(args)))
	}
	if to := strings.TrimSpace(q.To); to != "" {
		args = append(args, "%"+to+"%")
		where = append(where, fmt.Sprintf("to_location ILIKE $%d", len(args)))
	}
	if !q.Date.IsZero() {
		y, m, d := q.Date.UTC().Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		args = append(args, dayStart, dayStart.AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("departure_at >= $%d AND departure_at < $%d", len(args)-1, len(args)))
	}

	query := `SELECT` + rideColumns + ` FROM rides WHERE ` + strings.Join(where, " AND ") + ` ORDER BY departure_at, id`
	return repo.getMany(ctx, query, args...)
}

// ListActive returns active rides with free seats departing at or after departingFrom.
func (repo *RideRepo) ListActive(ctx context.Context, departingFrom time.Time) ([]*ride.Ride, error) {
	return repo.getMany(ctx, `
		SELECT`+rideColumns+`
		FROM rides
		WHERE status = 'ACTIVE'
		  AND seats_available > 0
		  AND departure_at >= $1
		ORDER BY departure_at, id
	`, departingFrom)
}

// ListByDriver returns every ride of a driver, newest first.
func (repo *RideRepo) ListByDriver(ctx context.Context, driverID string) ([]*ride.Ride, error) {
	return repo.getMany(ctx, `
		SELECT`+rideColumns+`
		FROM rides
		WHERE driver_id = $1
		ORDER BY created_at DESC, id
	`, driverID)
}

// --- helpers ---

func (repo *RideRepo) exec(ctx context.Context, query string, args ...any) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, query, args...)
	if noRow(err) {
		return ride.ErrRideNotFound
	}
	if err != nil {
		return fmt.Errorf("update rides: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ride.ErrRideNotFound
	}
	return nil
}

func (repo *RideRepo) getOne(ctx context.Context, query string, id string) (*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	out, err := scanRide(tx.QueryRow(ctx, query, id))
	if noRow(err) {
		return nil, ride.ErrRideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select ride: %w", err)
	}
	return out, nil
}

func (repo *RideRepo) getMany(ctx context.Context, query string, args ...any) ([]*ride.Ride, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()

	rides := make([]*ride.Ride, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		if noRow(err) {
			return []*ride.Ride{}, nil
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return rides, nil
}

func scanRide(row pgx.Row) (*ride.Ride, error) {
	var (
		out    ride.Ride
		status string
	)
	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.DriverID, &out.From, &out.To, &out.DepartureAt, &out.Stops,
		&out.Capacity, &out.SeatsAvailable, &out.PricePerSeat, &out.CarModel, &out.CarNumber, &out.AdditionalInfo,
		&out.Policy.InstantBooking, &out.Policy.AllowSmoking, &out.Policy.AllowPets, &out.Policy.AllowFood, &status,
	)
	if err != nil {
		return nil, err
	}
	out.Status = ride.Status(status)
	out.DepartureAt = out.DepartureAt.UTC()
	return &out, nil
}
