package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

func Test_ReviewRepo_RecomputeDriverRating(t *testing.T) {
	requireDB(t)
	trips := NewTripRepo(testPool)
	reviews := NewReviewRepo(testPool)
	driver := createUser(t, domain.RoleDriver)
	trip := createTrip(t, driver.ID, 4)

	for _, score := range []int{5, 4, 2} {
		p := createUser(t, domain.RolePassenger)
		res := newReservation(trip.ID, p.ID, 1)
		ok, err := trips.Reserve(t.Context(), res)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, reviews.Create(t.Context(), &domain.Review{
			ID:            uuid.New(),
			ReservationID: res.ID,
			DriverID:      driver.ID,
			PassengerID:   p.ID,
			Rating:        score,
			CreatedAt:     time.Now().UTC(),
		}))
	}

	rating, err := reviews.RecomputeDriverRating(t.Context(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rating.Count)
	assert.InDelta(t, 3.67, rating.Average, 0.001)

	u, err := NewUserRepo(testPool).GetByID(t.Context(), driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.67, u.Rating, 0.001)
	assert.Equal(t, 3, u.RatingCount)

	drivers, err := reviews.ListRatedDrivers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{driver.ID}, drivers)
}

func Test_ReviewRepo_DuplicateReviewIsAlreadyReviewed(t *testing.T) {
	requireDB(t)
	trips := NewTripRepo(testPool)
	reviews := NewReviewRepo(testPool)
	driver := createUser(t, domain.RoleDriver)
	p := createUser(t, domain.RolePassenger)
	trip := createTrip(t, driver.ID, 2)

	res := newReservation(trip.ID, p.ID, 1)
	ok, err := trips.Reserve(t.Context(), res)
	require.NoError(t, err)
	require.True(t, ok)

	review := func() *domain.Review {
		return &domain.Review{
			ID:            uuid.New(),
			ReservationID: res.ID,
			DriverID:      driver.ID,
			PassengerID:   p.ID,
			Rating:        4,
			CreatedAt:     time.Now().UTC(),
		}
	}
	require.NoError(t, reviews.Create(t.Context(), review()))

	err = reviews.Create(t.Context(), review())
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)
}
