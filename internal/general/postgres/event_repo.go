package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"carpool/internal/domain/booking"
	"carpool/internal/ports"
)

// EventRepo persists booking events using pgx and plain SQL.
type EventRepo struct{}

// NewEventRepo constructs a new EventRepo.
func NewEventRepo() ports.BookingEventRepository {
	return &EventRepo{}
}

// Append inserts a new booking_events row.
func (repo *EventRepo) Append(ctx context.Context, event *booking.Event) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if err := event.Validate(); err != nil {
		return err
	}
	data, err := event.DataJSON()
	if err != nil {
		return err
	}

	// ride-level events carry no booking
	var bookingID *string
	if event.BookingID != "" {
		bookingID = &event.BookingID
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO booking_events (ride_id, booking_id, event_type, event_data)
		VALUES ($1, $2, $3, $4::jsonb)
		RETURNING id, created_at
	`,
		event.RideID,
		bookingID,
		event.Type.String(),
		string(data),
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}
	return nil
}

// ListByRide returns the ride's events in the order they were written.
func (repo *EventRepo) ListByRide(ctx context.Context, rideID string) ([]*booking.Event, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, ride_id, booking_id, event_type, event_data
		FROM booking_events
		WHERE ride_id = $1
		ORDER BY created_at, id
	`, rideID)
	if noRow(err) {
		return []*booking.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query booking events: %w", err)
	}
	defer rows.Close()

	out := make([]*booking.Event, 0)
	for rows.Next() {
		var (
			e         booking.Event
			bookingID *string
			eventType string
			raw       []byte
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.RideID, &bookingID, &eventType, &raw); err != nil {
			return nil, fmt.Errorf("scan booking event: %w", err)
		}
		if bookingID != nil {
			e.BookingID = *bookingID
		}
		e.Type = booking.EventType(eventType)
		e.Data = make(map[string]any)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
