package memstore

import (
	"context"
	"strings"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/ports"

	"github.com/google/uuid"
)

// UserRepo stores users in a Store.
type UserRepo struct {
	s *Store
}

// NewUserRepo constructs a new UserRepo.
func NewUserRepo(s *Store) ports.UserRepository {
	return &UserRepo{s: s}
}

// Create inserts u, assigning an id if it has none.
func (repo *UserRepo) Create(ctx context.Context, u *user.User) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := t.lock(ctx, userKey(u.ID)); err != nil {
		return err
	}

	id := u.ID
	repo.s.mu.Lock()
	for _, other := range repo.s.users {
		if strings.EqualFold(other.Email, u.Email) {
			repo.s.mu.Unlock()
			return user.ErrEmailTaken
		}
	}
	repo.s.users[id] = *u
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		delete(repo.s.users, id)
		repo.s.mu.Unlock()
	})
	return nil
}

// GetByID returns a copy of the user without locking it.
func (repo *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	repo.s.mu.RLock()
	defer repo.s.mu.RUnlock()

	u, ok := repo.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

// GetForUpdate locks the user until the transaction ends and returns its current state.
func (repo *UserRepo) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	t, err := mustTx(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.lock(ctx, userKey(id)); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, id)
}

// UpdateRating stores a new rating and trip count.
func (repo *UserRepo) UpdateRating(ctx context.Context, id string, rating float64, totalTrips int, updatedAt time.Time) error {
	t, err := mustTx(ctx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, userKey(id)); err != nil {
		return err
	}

	repo.s.mu.Lock()
	prev, ok := repo.s.users[id]
	if !ok {
		repo.s.mu.Unlock()
		return user.ErrUserNotFound
	}
	next := prev
	next.Rating = rating
	next.TotalTrips = totalTrips
	next.UpdatedAt = updatedAt
	repo.s.users[id] = next
	repo.s.mu.Unlock()

	t.onRollback(func() {
		repo.s.mu.Lock()
		repo.s.users[id] = prev
		repo.s.mu.Unlock()
	})
	return nil
}
