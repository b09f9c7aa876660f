// Package memory holds map-backed repositories for the "memory" store driver
// and for service tests. All repositories share one Store and one lock so
// cross-table operations stay atomic.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]*domain.User
	messages     []*domain.Message
	trips        map[uuid.UUID]*domain.Trip
	reservations map[uuid.UUID]*domain.Reservation
	reviews      map[uuid.UUID]*domain.Review // reservationID -> review
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*domain.User),
		trips:        make(map[uuid.UUID]*domain.Trip),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		reviews:      make(map[uuid.UUID]*domain.Review),
	}
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s: s} }
func (s *Store) Messages() *MessageRepo { return &MessageRepo{s: s} }
func (s *Store) Trips() *TripRepo       { return &TripRepo{s: s} }
func (s *Store) Reviews() *ReviewRepo   { return &ReviewRepo{s: s} }
