package memory

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

type ReviewRepo struct {
	s *Store
}

func (r *ReviewRepo) Create(_ context.Context, review *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[review.ReservationID]; ok {
		return apperr.ErrAlreadyReviewed
	}
	cp := *review
	r.s.reviews[review.ReservationID] = &cp
	return nil
}

func (r *ReviewRepo) GetByReservation(_ context.Context, reservationID uuid.UUID) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[reservationID]
	if !ok {
		return nil, nil
	}
	cp := *rv
	return &cp, nil
}

func (r *ReviewRepo) RecomputeDriverRating(_ context.Context, driverID uuid.UUID) (*domain.DriverRating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[driverID]
	if !ok {
		return nil, nil
	}

	var sum, count int
	for _, rv := range r.s.reviews {
		if rv.DriverID == driverID {
			sum += rv.Rating
			count++
		}
	}

	avg := 0.0
	if count > 0 {
		// matches numeric(3,2) in postgres
		avg = math.Round(float64(sum)/float64(count)*100) / 100
	}
	u.Rating = avg
	u.RatingCount = count
	return &domain.DriverRating{DriverID: driverID, Average: avg, Count: count}, nil
}

func (r *ReviewRepo) ListRatedDrivers(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	out := []uuid.UUID{}
	for _, rv := range r.s.reviews {
		if _, ok := seen[rv.DriverID]; ok {
			continue
		}
		seen[rv.DriverID] = struct{}{}
		out = append(out, rv.DriverID)
	}
	return out, nil
}
