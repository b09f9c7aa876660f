package repository

//go:generate mockgen -destination=../service/mocks/mock_repository.go -package=mocks github.com/vedran77/covoit/internal/repository MessageRepository,ReviewRepository,TripRepository,UserRepository

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
)

// Lookups return (nil, nil) when the row does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type MessageRepository interface {
	// Create inserts a single message row.
	Create(ctx context.Context, msg *domain.Message) error
	// CreateFirst inserts msg only if no message exists between its sender and
	// recipient yet. It reports whether the row was inserted.
	CreateFirst(ctx context.Context, msg *domain.Message) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListBetween returns the thread between a and b in (sent_at, id) order,
	// strictly after the given message when after is set. limit <= 0 means all.
	ListBetween(ctx context.Context, a, b uuid.UUID, after *uuid.UUID, limit int) ([]domain.Message, error)
	// LastBetween returns the newest message between a and b.
	LastBetween(ctx context.Context, a, b uuid.UUID) (*domain.Message, error)
	ExistsBetween(ctx context.Context, a, b uuid.UUID) (bool, error)
	// MarkSeen flips seen on unseen messages from counterpart to owner and
	// returns the number of rows changed.
	MarkSeen(ctx context.Context, ownerID, counterpartID uuid.UUID) (int64, error)
	// MarkSeenIn is MarkSeen restricted to the given message ids.
	MarkSeenIn(ctx context.Context, ownerID, counterpartID uuid.UUID, ids []uuid.UUID) (int64, error)
	// CountUnread counts unseen messages addressed to owner, optionally only
	// those from counterpart.
	CountUnread(ctx context.Context, ownerID uuid.UUID, counterpartID *uuid.UUID) (int64, error)
	// ListConversations returns one summary per counterpart, newest first.
	ListConversations(ctx context.Context, ownerID uuid.UUID) ([]domain.ConversationSummary, error)
}

type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	Search(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
	// Reserve decrements the trip's free seats and inserts the reservation in
	// one transaction. It returns false when not enough seats are left.
	Reserve(ctx context.Context, res *domain.Reservation) (bool, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	ListReservations(ctx context.Context, passengerID uuid.UUID) ([]domain.Reservation, error)
	// CancelReservation marks the reservation cancelled and returns its seats.
	CancelReservation(ctx context.Context, id uuid.UUID) error
	// HasBookingLink reports whether a live reservation by passenger exists on
	// any trip driven by driver.
	HasBookingLink(ctx context.Context, passengerID, driverID uuid.UUID) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (*domain.Review, error)
	// RecomputeDriverRating rebuilds the driver's average from all reviews.
	RecomputeDriverRating(ctx context.Context, driverID uuid.UUID) (*domain.DriverRating, error)
	ListRatedDrivers(ctx context.Context) ([]uuid.UUID, error)
}
