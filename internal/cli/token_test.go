package cli

import (
	"testing"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/general/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUserToken(t *testing.T) {
	token, claims, err := GenerateUserToken("s3cret", "user-1", "driver", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, user.RoleDriver, claims.Role)

	_, parsed, err := jwt.NewManager("s3cret", time.Hour).ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject)
}

func TestGenerateUserTokenRejectsBadInput(t *testing.T) {
	_, _, err := GenerateUserToken("s3cret", "user-1", "pilot", time.Hour)
	assert.Error(t, err)

	_, _, err = GenerateUserToken("s3cret", "user-1", "DRIVER", 0)
	assert.Error(t, err)

	_, _, err = GenerateUserToken("s3cret", "", "DRIVER", time.Hour)
	assert.ErrorIs(t, err, jwt.ErrNoSubject)
}
