package service

import (
	"context"
	"time"

	"carpool/internal/domain/user"
	"carpool/internal/general/logger"
	"carpool/internal/general/metrics"
	"carpool/internal/general/telemetry"
	"carpool/internal/ports"

	"go.opentelemetry.io/otel/attribute"
)

// ratingAggregator folds new ratings into a user's running average under the user's row lock.
type ratingAggregator struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	uow     ports.UnitOfWork
	users   ports.UserRepository
	now     func() time.Time
}

func newRatingAggregator(logger *logger.Logger, metrics *metrics.Metrics, uow ports.UnitOfWork, users ports.UserRepository, now func() time.Time) *ratingAggregator {
	return &ratingAggregator{logger: logger, metrics: metrics, uow: uow, users: users, now: now}
}

// RecordRating validates rating and applies it to the user.
func (agg *ratingAggregator) RecordRating(ctx context.Context, userID string, rating float64) (_ *user.User, err error) {
	ctx, span := telemetry.StartSpan(ctx, "rating.record", attribute.String("user.id", userID))
	defer func() { telemetry.End(span, err) }()

	if err := user.ValidateRating(rating); err != nil {
		return nil, err
	}

	var out *user.User
	err = agg.uow.WithinTx(ctx, func(txCtx context.Context) error {
		u, err := agg.users.GetForUpdate(txCtx, userID)
		if err != nil {
			return err
		}
		if err := u.RecordRating(rating, agg.now()); err != nil {
			return err
		}
		if err := agg.users.UpdateRating(txCtx, u.ID, u.Rating, u.TotalTrips, u.UpdatedAt); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	agg.metrics.RatingUpdated()
	agg.logger.Info(ctx, "rating_recorded", "Rating recorded", map[string]any{
		"user_id":     out.ID,
		"rating":      rating,
		"new_average": out.Rating,
		"total_trips": out.TotalTrips,
	})
	return out, nil
}
