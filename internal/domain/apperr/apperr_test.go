package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesSentinelAndKind(t *testing.T) {
	errRideMissing := New(KindNotFound, "ride not found")
	errBookingMissing := New(KindNotFound, "booking not found")

	wrapped := fmt.Errorf("load ride: %w", errRideMissing)

	assert.ErrorIs(t, wrapped, errRideMissing)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, errBookingMissing)
	assert.NotErrorIs(t, wrapped, ErrForbidden)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("x: %w", New(KindInsufficientCapacity, "no seats")))
	require.True(t, ok)
	assert.Equal(t, KindInsufficientCapacity, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:              http.StatusNotFound,
		KindForbidden:             http.StatusForbidden,
		KindInvalidTransition:     http.StatusConflict,
		KindInsufficientCapacity:  http.StatusConflict,
		KindRideNotActive:         http.StatusConflict,
		KindConflict:              http.StatusConflict,
		KindInvalidSeatCount:      http.StatusBadRequest,
		KindSelfBookingNotAllowed: http.StatusBadRequest,
		KindInvalidRating:         http.StatusBadRequest,
		KindValidation:            http.StatusBadRequest,
		Kind("OTHER"):             http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}
