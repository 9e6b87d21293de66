package cli

import (
	"fmt"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/general/jwt"
)

// GenerateUserToken mints a JWT for a user. It uses jwt.Manager and returns the raw token plus the claims.
//
// Typical use (dev-only):
//
//	token, _, err := cli.GenerateUserToken(secret, "550e8400-e29b-41d4-a716-446655440001", "DRIVER", 2*time.Hour)
//
// Keep this package dev/internal only. Do not call it from production code paths.
func GenerateUserToken(secret, userID, roleStr string, ttl time.Duration) (string, jwt.Claims, error) {
	role, err := user.ParseRole(roleStr)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("invalid role %q: %w", roleStr, err)
	}
	if ttl <= 0 {
		return "", jwt.Claims{}, fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	mgr := jwt.NewManager(secret, ttl)
	token, claims, err := mgr.IssueUserToken(userID, role)
	if err != nil {
		return "", jwt.Claims{}, fmt.Errorf("issue token: %w", err)
	}

	return token, *claims, nil
}
