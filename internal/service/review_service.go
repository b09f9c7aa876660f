package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
)

type ReviewService struct {
	reviews repository.ReviewRepository
	trips   repository.TripRepository
	users   repository.UserRepository
	log     *logger.Logger
}

func NewReviewService(
	reviews repository.ReviewRepository,
	trips repository.TripRepository,
	users repository.UserRepository,
	log *logger.Logger,
) *ReviewService {
	return &ReviewService{reviews: reviews, trips: trips, users: users, log: log}
}

type ReviewInput struct {
	Rating  int     `json:"rating" validate:"gte=1,lte=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// Review records the passenger's rating of the driver and rebuilds the
// driver's average from every review.
func (s *ReviewService) Review(ctx context.Context, passengerID, reservationID uuid.UUID, input ReviewInput) (*domain.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperr.Validation("rating", "rating must be between 1 and 5")
	}

	res, err := s.trips.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr(err)
	}
	if res == nil {
		return nil, apperr.ErrReservationNotFound
	}
	if res.PassengerID != passengerID {
		return nil, apperr.ErrNotReservationOwner
	}
	if res.Status == domain.ReservationCancelled {
		return nil, apperr.ErrReservationCancelled
	}

	existing, err := s.reviews.GetByReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr(err)
	}
	if existing != nil {
		return nil, apperr.ErrAlreadyReviewed
	}

	review := &domain.Review{
		ID:            uuid.New(),
		ReservationID: reservationID,
		DriverID:      res.DriverID,
		PassengerID:   passengerID,
		Rating:        input.Rating,
		CreatedAt:     time.Now().UTC(),
	}
	if input.Comment != nil {
		if c := strings.TrimSpace(*input.Comment); c != "" {
			review.Comment = &c
		}
	}

	// ErrAlreadyReviewed when a concurrent review won the unique constraint.
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, storeErr(err)
	}

	// The review is stored; a failed recompute is repaired by the reconciler.
	if _, err := s.reviews.RecomputeDriverRating(ctx, res.DriverID); err != nil {
		s.log.Error("recompute driver rating", "driver_id", res.DriverID, "err", err)
	}
	return review, nil
}

func (s *ReviewService) DriverRating(ctx context.Context, driverID uuid.UUID) (*domain.DriverRating, error) {
	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return nil, storeErr(err)
	}
	if driver == nil || driver.Role != domain.RoleDriver {
		return nil, apperr.ErrUserNotFound
	}
	return &domain.DriverRating{
		DriverID: driver.ID,
		Average:  driver.Rating,
		Count:    driver.RatingCount,
	}, nil
}

// ReconcileRatings recomputes every reviewed driver and returns how many were
// processed.
func (s *ReviewService) ReconcileRatings(ctx context.Context) (int, error) {
	drivers, err := s.reviews.ListRatedDrivers(ctx)
	if err != nil {
		return 0, storeErr(err)
	}

	done := 0
	for _, id := range drivers {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := s.reviews.RecomputeDriverRating(ctx, id); err != nil {
			s.log.Error("reconcile driver rating", "driver_id", id, "err", err)
			continue
		}
		done++
	}
	return done, nil
}
