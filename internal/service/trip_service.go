package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

type TripService struct {
	trips repository.TripRepository
	users repository.UserRepository
	now   func() time.Time
}

func NewTripService(trips repository.TripRepository, users repository.UserRepository) *TripService {
	return &TripService{trips: trips, users: users, now: time.Now}
}

type CreateTripInput struct {
	Departure    string    `json:"departure" validate:"required,notblank,max=100"`
	Arrival      string    `json:"arrival" validate:"required,notblank,max=100,nefield=Departure"`
	DepartsAt    time.Time `json:"departs_at" validate:"required"`
	Seats        int       `json:"seats" validate:"gte=1,lte=8"`
	PricePerSeat float64   `json:"price_per_seat" validate:"gte=0"`
}

type ReserveInput struct {
	Seats int `json:"seats" validate:"gte=1,lte=8"`
}

type SearchTripsInput struct {
	Departure string
	Arrival   string
	Date      *time.Time
}

func (s *TripService) CreateTrip(ctx context.Context, driverID uuid.UUID, input CreateTripInput) (*domain.Trip, error) {
	driver, err := s.users.GetByID(ctx, driverID)
	if err != nil {
		return nil, storeErr(err)
	}
	if driver == nil {
		return nil, apperr.ErrUserNotFound
	}
	if driver.Role != domain.RoleDriver {
		return nil, apperr.ErrDriverOnly
	}

	now := s.now().UTC()
	if !input.DepartsAt.After(now) {
		return nil, apperr.Validation("departs_at", "departs_at must be in the future")
	}

	trip := &domain.Trip{
		ID:             uuid.New(),
		DriverID:       driverID,
		Departure:      strings.TrimSpace(input.Departure),
		Arrival:        strings.TrimSpace(input.Arrival),
		DepartsAt:      input.DepartsAt.UTC().Truncate(time.Microsecond),
		SeatsTotal:     input.Seats,
		SeatsAvailable: input.Seats,
		PricePerSeat:   input.PricePerSeat,
		CreatedAt:      now,
		DriverName:     driver.FullName,
		DriverRating:   driver.Rating,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, storeErr(err)
	}
	return trip, nil
}

// SearchTrips lists upcoming trips that still have free seats.
func (s *TripService) SearchTrips(ctx context.Context, input SearchTripsInput) ([]domain.Trip, error) {
	filter := domain.TripFilter{
		Departure: strings.TrimSpace(input.Departure),
		Arrival:   strings.TrimSpace(input.Arrival),
		After:     s.now().UTC(),
	}
	if input.Date != nil {
		filter.Date = *input.Date
	}

	trips, err := s.trips.Search(ctx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	return trips, nil
}

func (s *TripService) Reserve(ctx context.Context, passengerID, tripID uuid.UUID, input ReserveInput) (*domain.Reservation, error) {
	passenger, err := s.users.GetByID(ctx, passengerID)
	if err != nil {
		return nil, storeErr(err)
	}
	if passenger == nil {
		return nil, apperr.ErrUserNotFound
	}
	if passenger.Role != domain.RolePassenger {
		return nil, apperr.ErrPassengerOnly
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, storeErr(err)
	}
	if trip == nil {
		return nil, apperr.ErrTripNotFound
	}
	if trip.DriverID == passengerID {
		return nil, apperr.ErrOwnTrip
	}

	res := &domain.Reservation{
		ID:          uuid.New(),
		TripID:      trip.ID,
		PassengerID: passengerID,
		Seats:       input.Seats,
		TotalPrice:  float64(input.Seats) * trip.PricePerSeat,
		Status:      domain.ReservationConfirmed,
		CreatedAt:   s.now().UTC(),
		DriverID:    trip.DriverID,
	}

	ok, err := s.trips.Reserve(ctx, res)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, apperr.ErrNotEnoughSeats
	}
	return res, nil
}

// CancelReservation gives the seats back. Cancelling twice is a no-op.
func (s *TripService) CancelReservation(ctx context.Context, passengerID, reservationID uuid.UUID) error {
	res, err := s.ownedReservation(ctx, passengerID, reservationID)
	if err != nil {
		return err
	}
	if res.Status == domain.ReservationCancelled {
		return nil
	}
	if err := s.trips.CancelReservation(ctx, reservationID); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *TripService) ListReservations(ctx context.Context, passengerID uuid.UUID) ([]domain.Reservation, error) {
	list, err := s.trips.ListReservations(ctx, passengerID)
	if err != nil {
		return nil, storeErr(err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return list, nil
}

func (s *TripService) ownedReservation(ctx context.Context, passengerID, reservationID uuid.UUID) (*domain.Reservation, error) {
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
	return res, nil
}
