package jwt

import (
	"time"

	"carpool/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "carpool"

// Claims defines our canonical JWT claims payload. Subject is the user id acting on the API.
type Claims struct {
	Role user.Role `json:"role"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs end-user claims (passenger/driver/admin).
func NewUserClaims(userID string, role user.Role, ttl time.Duration, now time.Time) *Claims {
	return &Claims{
		Role: role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}
