package user

import (
	"net/mail"
	"strings"
	"time"

	"carpool/internal/domain/apperr"
)

// User is the account record. Rating and TotalTrips change only through RecordRating.
type User struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Name  string
	Email string
	Role  Role

	// Rating is 0 until the first rating is recorded, then within [MinRating, MaxRating].
	Rating     float64
	TotalTrips int
}

var (
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")
	ErrInvalidEmail = apperr.New(apperr.KindValidation, "invalid email address")
	ErrNameRequired = apperr.New(apperr.KindValidation, "name is required")
	ErrRoleInvalid  = apperr.New(apperr.KindValidation, "invalid role")
	ErrEmailTaken   = apperr.New(apperr.KindConflict, "email is already registered")
)

// NewUser constructs an unrated user.
func NewUser(name, email string, role Role, now time.Time) (*User, error) {
	u := &User{
		CreatedAt: now,
		UpdatedAt: now,
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Role:      role,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks invariants of the User entity.
func (u *User) Validate() error {
	if u.Name == "" {
		return ErrNameRequired
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	if !u.Role.Valid() {
		return ErrRoleInvalid
	}
	return nil
}
