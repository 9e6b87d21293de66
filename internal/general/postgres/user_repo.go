package postgres

import (
	"context"
	"fmt"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/ports"
)

// UserRepo persists users using pgx and plain SQL.
type UserRepo struct{}

// NewUserRepo constructs a new UserRepo.
func NewUserRepo() ports.UserRepository {
	return &UserRepo{}
}

// Create inserts a new user row.
func (repo *UserRepo) Create(ctx context.Context, u *user.User) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, role, rating, total_trips)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`,
		u.Name,
		u.Email,
		u.Role.String(),
		u.Rating,
		u.TotalTrips,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns one user by id.
func (repo *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	return repo.getOne(ctx, `
		SELECT id, created_at, updated_at, name, email, role, rating, total_trips
		FROM users
		WHERE id = $1
	`, id)
}

// GetForUpdate returns one user and locks the row until the transaction ends.
func (repo *UserRepo) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	return repo.getOne(ctx, `
		SELECT id, created_at, updated_at, name, email, role, rating, total_trips
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id)
}

// UpdateRating stores the recomputed average and trip count.
func (repo *UserRepo) UpdateRating(ctx context.Context, id string, rating float64, totalTrips int, updatedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET rating = $1,
		    total_trips = $2,
		    updated_at = $3
		WHERE id = $4
	`, rating, totalTrips, updatedAt, id)
	if noRow(err) {
		return user.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update user rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func (repo *UserRepo) getOne(ctx context.Context, query, id string) (*user.User, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out      user.User
		roleText string
	)
	err = tx.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt,
		&out.Name, &out.Email, &roleText, &out.Rating, &out.TotalTrips,
	)
	if noRow(err) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	out.Role = user.Role(roleText)
	return &out, nil
}
