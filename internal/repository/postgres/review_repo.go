package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/vedran77/covoit/internal/domain"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, reservation_id, driver_id, passenger_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		review.ID, review.ReservationID, review.DriverID, review.PassengerID,
		review.Rating, review.Comment, review.CreatedAt,
	)
	if isUniqueViolation(err, "reviews_reservation_id_key") {
		return apperr.ErrAlreadyReviewed
	}
	if err != nil {
		return errors.Wrap(err, "reviewRepo.Create")
	}
	return nil
}

func (r *ReviewRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Review, error) {
	var rv domain.Review
	err := r.pool.QueryRow(ctx, `
		SELECT id, reservation_id, driver_id, passenger_id, rating, comment, created_at
		FROM reviews WHERE reservation_id = $1`, reservationID,
	).Scan(&rv.ID, &rv.ReservationID, &rv.DriverID, &rv.PassengerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reviewRepo.GetByReservation")
	}
	return &rv, nil
}

// RecomputeDriverRating rescans every review of the driver in a single statement.
func (r *ReviewRepo) RecomputeDriverRating(ctx context.Context, driverID uuid.UUID) (*domain.DriverRating, error) {
	rating := domain.DriverRating{DriverID: driverID}
	err := r.pool.QueryRow(ctx, `
		UPDATE users u SET
			rating = COALESCE(agg.avg, 0),
			rating_count = agg.cnt,
			updated_at = now()
		FROM (
			SELECT AVG(rating)::numeric(3, 2) AS avg, COUNT(*)::int AS cnt
			FROM reviews WHERE driver_id = $1
		) agg
		WHERE u.id = $1
		RETURNING u.rating, u.rating_count`, driverID,
	).Scan(&rating.Average, &rating.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reviewRepo.RecomputeDriverRating")
	}
	return &rating, nil
}

func (r *ReviewRepo) ListRatedDrivers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT driver_id FROM reviews`)
	if err != nil {
		return nil, errors.Wrap(err, "reviewRepo.ListRatedDrivers")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, errors.Wrap(err, "reviewRepo.ListRatedDrivers.Collect")
	}
	return ids, nil
}
