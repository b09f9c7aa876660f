package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/covoit/internal/domain"
)

type TripRepo struct {
	pool *pgxpool.Pool
}

func NewTripRepo(pool *pgxpool.Pool) *TripRepo {
	return &TripRepo{pool: pool}
}

func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, driver_id, departure, arrival, departs_at, seats_total, seats_available, price_per_seat, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		trip.ID, trip.DriverID, trip.Departure, trip.Arrival, trip.DepartsAt,
		trip.SeatsTotal, trip.SeatsAvailable, trip.PricePerSeat, trip.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "tripRepo.Create")
	}
	return nil
}

const tripSelect = `
	SELECT t.id, t.driver_id, t.departure, t.arrival, t.departs_at,
		t.seats_total, t.seats_available, t.price_per_seat, t.created_at,
		u.full_name, u.rating
	FROM trips t
	JOIN users u ON t.driver_id = u.id`

func scanTrip(row pgx.Row, t *domain.Trip) error {
	return row.Scan(
		&t.ID, &t.DriverID, &t.Departure, &t.Arrival, &t.DepartsAt,
		&t.SeatsTotal, &t.SeatsAvailable, &t.PricePerSeat, &t.CreatedAt,
		&t.DriverName, &t.DriverRating,
	)
}

func (r *TripRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	var trip domain.Trip
	err := scanTrip(r.pool.QueryRow(ctx, tripSelect+` WHERE t.id = $1`, id), &trip)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "tripRepo.GetByID")
	}
	return &trip, nil
}

func (r *TripRepo) Search(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	query := tripSelect + `
		WHERE t.seats_available > 0
			AND t.departs_at > $1
			AND ($2 = '' OR lower(t.departure) = lower($2))
			AND ($3 = '' OR lower(t.arrival) = lower($3))
			AND ($4::timestamptz IS NULL OR (t.departs_at >= $4 AND t.departs_at < $4 + interval '1 day'))
		ORDER BY t.departs_at ASC, t.id ASC
		LIMIT 100`

	var day *time.Time
	if !filter.Date.IsZero() {
		d := filter.Date.UTC().Truncate(24 * time.Hour)
		day = &d
	}

	rows, err := r.pool.Query(ctx, query, filter.After, filter.Departure, filter.Arrival, day)
	if err != nil {
		return nil, errors.Wrap(err, "tripRepo.Search")
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		var t domain.Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, errors.Wrap(err, "tripRepo.Search.Scan")
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tripRepo.Search.Rows")
	}
	return trips, nil
}

func (r *TripRepo) Reserve(ctx context.Context, res *domain.Reservation) (bool, error) {
	reserved := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE trips SET seats_available = seats_available - $2
			WHERE id = $1 AND seats_available >= $2`,
			res.TripID, res.Seats,
		)
		if err != nil {
			return errors.Wrap(err, "tripRepo.Reserve.Seats")
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reservations (id, trip_id, passenger_id, seats, total_price, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.ID, res.TripID, res.PassengerID, res.Seats, res.TotalPrice, res.Status, res.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, "tripRepo.Reserve.Insert")
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reserved, nil
}

const reservationSelect = `
	SELECT r.id, r.trip_id, r.passenger_id, r.seats, r.total_price, r.status, r.created_at, t.driver_id
	FROM reservations r
	JOIN trips t ON r.trip_id = t.id`

func (r *TripRepo) GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	var res domain.Reservation
	err := r.pool.QueryRow(ctx, reservationSelect+` WHERE r.id = $1`, id).Scan(
		&res.ID, &res.TripID, &res.PassengerID, &res.Seats, &res.TotalPrice,
		&res.Status, &res.CreatedAt, &res.DriverID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "tripRepo.GetReservation")
	}
	return &res, nil
}

func (r *TripRepo) ListReservations(ctx context.Context, passengerID uuid.UUID) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx,
		reservationSelect+` WHERE r.passenger_id = $1 ORDER BY r.created_at DESC`, passengerID)
	if err != nil {
		return nil, errors.Wrap(err, "tripRepo.ListReservations")
	}
	defer rows.Close()

	reservations := []domain.Reservation{}
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID, &res.TripID, &res.PassengerID, &res.Seats, &res.TotalPrice,
			&res.Status, &res.CreatedAt, &res.DriverID,
		); err != nil {
			return nil, errors.Wrap(err, "tripRepo.ListReservations.Scan")
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tripRepo.ListReservations.Rows")
	}
	return reservations, nil
}

func (r *TripRepo) CancelReservation(ctx context.Context, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var tripID uuid.UUID
		var seats int
		err := tx.QueryRow(ctx, `
			UPDATE reservations SET status = $2
			WHERE id = $1 AND status <> $2
			RETURNING trip_id, seats`,
			id, domain.ReservationCancelled,
		).Scan(&tripID, &seats)
		if errors.Is(err, pgx.ErrNoRows) {
			// already cancelled
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "tripRepo.CancelReservation.Update")
		}

		_, err = tx.Exec(ctx,
			`UPDATE trips SET seats_available = seats_available + $2 WHERE id = $1`, tripID, seats)
		if err != nil {
			return errors.Wrap(err, "tripRepo.CancelReservation.Seats")
		}
		return nil
	})
}

func (r *TripRepo) HasBookingLink(ctx context.Context, passengerID, driverID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations r
			JOIN trips t ON r.trip_id = t.id
			WHERE r.passenger_id = $1 AND t.driver_id = $2 AND r.status <> $3
		)`, passengerID, driverID, domain.ReservationCancelled,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "tripRepo.HasBookingLink")
	}
	return exists, nil
}
