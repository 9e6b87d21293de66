package user

import (
	"math"
	"time"

	"carpool/internal/domain/apperr"
)

const (
	MinRating = 1.0
	MaxRating = 5.0
)

var ErrInvalidRating = apperr.New(apperr.KindInvalidRating, "rating must be between 1.0 and 5.0")

// ValidateRating rejects ratings outside [MinRating, MaxRating].
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// NextRating folds newRating into a running average over trips trips,
// rounded to one decimal.
func NextRating(current float64, trips int, newRating float64) float64 {
	avg := (current*float64(trips) + newRating) / float64(trips+1)
	return math.Round(avg*10) / 10
}

// RecordRating applies one rating. The caller must hold the user's write lock.
func (u *User) RecordRating(r float64, now time.Time) error {
	if err := ValidateRating(r); err != nil {
		return err
	}
	u.Rating = NextRating(u.Rating, u.TotalTrips, r)
	u.TotalTrips++
	u.UpdatedAt = now
	return nil
}
