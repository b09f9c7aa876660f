package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository/memory"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/pkg/logger"
)

const (
	maxBody  = 5000
	greeting = "Hi! I'm getting in touch about our trip."
)

type fixture struct {
	db       *memory.Store
	store    *service.MessageStore
	index    *service.ConversationIndex
	contacts *service.ContactResolver
	dm       *service.DMService
	trips    *service.TripService
	reviews  *service.ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.NewStore()
	log := logger.Nop()

	store := service.NewMessageStore(db.Messages(), db.Users(), maxBody)
	index := service.NewConversationIndex(db.Messages())
	contacts := service.NewContactResolver(db.Users(), db.Trips(), store, greeting)

	return &fixture{
		db:       db,
		store:    store,
		index:    index,
		contacts: contacts,
		dm:       service.NewDMService(store, index, contacts, db.Users(), log),
		trips:    service.NewTripService(db.Trips(), db.Users()),
		reviews:  service.NewReviewService(db.Reviews(), db.Trips(), db.Users(), log),
	}
}

func (f *fixture) user(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		FullName:  string(role),
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, f.db.Users().Create(t.Context(), u))
	return u
}

func (f *fixture) trip(t *testing.T, driver *domain.User, seats int) *domain.Trip {
	t.Helper()
	trip, err := f.trips.CreateTrip(t.Context(), driver.ID, service.CreateTripInput{
		Departure:    "Lyon",
		Arrival:      "Grenoble",
		DepartsAt:    time.Now().Add(24 * time.Hour),
		Seats:        seats,
		PricePerSeat: 10,
	})
	require.NoError(t, err)
	return trip
}

// book makes passenger reserve one seat on a new trip driven by driver.
func (f *fixture) book(t *testing.T, passenger, driver *domain.User) *domain.Reservation {
	t.Helper()
	trip := f.trip(t, driver, 3)
	res, err := f.trips.Reserve(t.Context(), passenger.ID, trip.ID, service.ReserveInput{Seats: 1})
	require.NoError(t, err)
	return res
}
