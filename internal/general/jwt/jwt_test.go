package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"carpool/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	mgr := NewManager("secret", time.Hour)

	raw, issued, err := mgr.IssueUserToken("user-1", user.RoleDriver)
	require.NoError(t, err)
	assert.Equal(t, "user-1", issued.Subject)

	_, claims, err := mgr.ParseAndValidate(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, user.RoleDriver, claims.Role)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestParseRejects(t *testing.T) {
	mgr := NewManager("secret", time.Hour)
	raw, _, err := mgr.IssueUserToken("user-1", user.RolePassenger)
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, _, err := NewManager("other", time.Hour).ParseAndValidate(raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewManager("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, _, err := late.ParseAndValidate(raw)
		assert.ErrorIs(t, err, jwtlib.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := NewUserClaims("user-1", user.RolePassenger, time.Hour, time.Now())
		claims.Issuer = "elsewhere"
		forged, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, _, err = mgr.ParseAndValidate(forged)
		assert.Error(t, err)
	})
}

func TestIssueRejectsBadInput(t *testing.T) {
	mgr := NewManager("secret", time.Hour)

	_, _, err := mgr.IssueUserToken("", user.RoleDriver)
	assert.ErrorIs(t, err, ErrNoSubject)

	_, _, err = mgr.IssueUserToken("user-1", user.Role("PILOT"))
	assert.Error(t, err)
}

func TestFromAuthorization(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
		err    error
	}{
		{"missing", "", "", ErrNoAuthHeader},
		{"basic", "Basic abc", "", ErrBadAuthScheme},
		{"no token", "Bearer ", "", ErrBadAuthScheme},
		{"ok", "Bearer abc.def", "abc.def", nil},
		{"lower case scheme", "bearer abc", "abc", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			got, err := FromAuthorization(r)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	mgr := NewManager("secret", time.Hour)
	driverToken, _, err := mgr.IssueUserToken("driver-1", user.RoleDriver)
	require.NoError(t, err)
	passengerToken, _, err := mgr.IssueUserToken("passenger-1", user.RolePassenger)
	require.NoError(t, err)

	var seen string
	h := AuthMiddlewareFunc(mgr, user.RoleDriver)(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorID(r)
		w.WriteHeader(http.StatusNoContent)
	})

	call := func(token string) int {
		r := httptest.NewRequest(http.MethodPost, "/rides", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("garbage"))
	assert.Equal(t, http.StatusForbidden, call(passengerToken))
	assert.Equal(t, http.StatusNoContent, call(driverToken))
	assert.Equal(t, "driver-1", seen)
}

func TestAuthMiddlewareWithoutRolesAcceptsAnyUser(t *testing.T) {
	mgr := NewManager("secret", time.Hour)
	token, _, err := mgr.IssueUserToken("passenger-1", user.RolePassenger)
	require.NoError(t, err)

	h := AuthMiddlewareFunc(mgr)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r := httptest.NewRequest(http.MethodGet, "/bookings/x", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
