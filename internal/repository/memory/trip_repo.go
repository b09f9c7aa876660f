package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/covoit/internal/domain"
)

const searchLimit = 100

type TripRepo struct {
	s *Store
}

func (r *TripRepo) Create(_ context.Context, trip *domain.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[trip.DriverID]; !ok {
		return errors.Errorf("tripRepo.Create: unknown driver %s", trip.DriverID)
	}
	cp := *trip
	r.s.trips[trip.ID] = &cp
	return nil
}

func (r *TripRepo) withDriver(t *domain.Trip) domain.Trip {
	cp := *t
	if u, ok := r.s.users[t.DriverID]; ok {
		cp.DriverName = u.FullName
		cp.DriverRating = u.Rating
	}
	return cp
}

func (r *TripRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.trips[id]
	if !ok {
		return nil, nil
	}
	cp := r.withDriver(t)
	return &cp, nil
}

func (r *TripRepo) Search(_ context.Context, f domain.TripFilter) ([]domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Trip{}
	for _, t := range r.s.trips {
		if t.SeatsAvailable <= 0 || !t.DepartsAt.After(f.After) {
			continue
		}
		if f.Departure != "" && !strings.EqualFold(t.Departure, f.Departure) {
			continue
		}
		if f.Arrival != "" && !strings.EqualFold(t.Arrival, f.Arrival) {
			continue
		}
		if !f.Date.IsZero() {
			day := f.Date.UTC().Truncate(24 * time.Hour)
			if t.DepartsAt.Before(day) || !t.DepartsAt.Before(day.Add(24*time.Hour)) {
				continue
			}
		}
		out = append(out, r.withDriver(t))
	}
	slices.SortFunc(out, func(x, y domain.Trip) int { return x.DepartsAt.Compare(y.DepartsAt) })
	if len(out) > searchLimit {
		out = out[:searchLimit]
	}
	return out, nil
}

func (r *TripRepo) Reserve(_ context.Context, res *domain.Reservation) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.trips[res.TripID]
	if !ok {
		return false, errors.Errorf("tripRepo.Reserve: unknown trip %s", res.TripID)
	}
	if t.SeatsAvailable < res.Seats {
		return false, nil
	}
	t.SeatsAvailable -= res.Seats

	cp := *res
	cp.DriverID = t.DriverID
	r.s.reservations[res.ID] = &cp
	return true, nil
}

func (r *TripRepo) GetReservation(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (r *TripRepo) ListReservations(_ context.Context, passengerID uuid.UUID) ([]domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Reservation{}
	for _, res := range r.s.reservations {
		if res.PassengerID == passengerID {
			out = append(out, *res)
		}
	}
	slices.SortFunc(out, func(x, y domain.Reservation) int { return y.CreatedAt.Compare(x.CreatedAt) })
	return out, nil
}

func (r *TripRepo) CancelReservation(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[id]
	if !ok || res.Status == domain.ReservationCancelled {
		return nil
	}
	res.Status = domain.ReservationCancelled
	if t, ok := r.s.trips[res.TripID]; ok {
		t.SeatsAvailable += res.Seats
	}
	return nil
}

func (r *TripRepo) HasBookingLink(_ context.Context, passengerID, driverID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, res := range r.s.reservations {
		if res.PassengerID == passengerID && res.DriverID == driverID &&
			res.Status != domain.ReservationCancelled {
			return true, nil
		}
	}
	return false, nil
}
