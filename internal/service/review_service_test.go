package service_test

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/service/mocks"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
)

func Test_ReviewService_RecomputesAverage(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, domain.RoleDriver)

	for _, score := range []int{5, 3, 4} {
		p := f.user(t, domain.RolePassenger)
		res := f.book(t, p, driver)
		_, err := f.reviews.Review(t.Context(), p.ID, res.ID, service.ReviewInput{Rating: score})
		require.NoError(t, err)
	}

	rating, err := f.reviews.DriverRating(t.Context(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rating.Count)
	assert.InDelta(t, 4.0, rating.Average, 0.001)
}

func Test_ReviewService_Rules(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, domain.RoleDriver)
	passenger := f.user(t, domain.RolePassenger)
	stranger := f.user(t, domain.RolePassenger)
	res := f.book(t, passenger, driver)

	_, err := f.reviews.Review(t.Context(), passenger.ID, res.ID, service.ReviewInput{Rating: 6})
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = f.reviews.Review(t.Context(), stranger.ID, res.ID, service.ReviewInput{Rating: 4})
	assert.ErrorIs(t, err, apperr.ErrNotReservationOwner)

	comment := "  Smooth ride  "
	review, err := f.reviews.Review(t.Context(), passenger.ID, res.ID, service.ReviewInput{Rating: 4, Comment: &comment})
	require.NoError(t, err)
	require.NotNil(t, review.Comment)
	assert.Equal(t, "Smooth ride", *review.Comment)
	assert.Equal(t, driver.ID, review.DriverID)

	_, err = f.reviews.Review(t.Context(), passenger.ID, res.ID, service.ReviewInput{Rating: 2})
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)

	cancelled := f.book(t, passenger, driver)
	require.NoError(t, f.trips.CancelReservation(t.Context(), passenger.ID, cancelled.ID))
	_, err = f.reviews.Review(t.Context(), passenger.ID, cancelled.ID, service.ReviewInput{Rating: 1})
	assert.ErrorIs(t, err, apperr.ErrReservationCancelled)
}

func Test_ReviewService_ReconcileRatings(t *testing.T) {
	f := newFixture(t)
	d1 := f.user(t, domain.RoleDriver)
	d2 := f.user(t, domain.RoleDriver)
	for _, d := range []*domain.User{d1, d2} {
		p := f.user(t, domain.RolePassenger)
		res := f.book(t, p, d)
		_, err := f.reviews.Review(t.Context(), p.ID, res.ID, service.ReviewInput{Rating: 5})
		require.NoError(t, err)
	}

	n, err := f.reviews.ReconcileRatings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.reviews.DriverRating(t.Context(), f.user(t, domain.RolePassenger).ID)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func Test_ReviewService_ReviewLosingRaceIsAlreadyReviewed(t *testing.T) {
	ctrl := gomock.NewController(t)
	reviews := mocks.NewMockReviewRepository(ctrl)
	trips := mocks.NewMockTripRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)
	svc := service.NewReviewService(reviews, trips, users, logger.Nop())

	res := &domain.Reservation{
		ID:          uuid.New(),
		PassengerID: uuid.New(),
		DriverID:    uuid.New(),
		Status:      domain.ReservationConfirmed,
	}
	trips.EXPECT().GetReservation(gomock.Any(), res.ID).Return(res, nil)
	reviews.EXPECT().GetByReservation(gomock.Any(), res.ID).Return(nil, nil)
	reviews.EXPECT().Create(gomock.Any(), gomock.Any()).Return(apperr.ErrAlreadyReviewed)
	reviews.EXPECT().RecomputeDriverRating(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.Review(t.Context(), res.PassengerID, res.ID, service.ReviewInput{Rating: 5})
	assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)
	assert.Equal(t, apperr.CodeAlreadyExists, apperr.CodeOf(err))
}
