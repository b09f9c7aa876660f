package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

// ContactResolver decides who may message whom and opens conversations.
type ContactResolver struct {
	users    repository.UserRepository
	trips    repository.TripRepository
	store    *MessageStore
	greeting string
}

func NewContactResolver(
	users repository.UserRepository,
	trips repository.TripRepository,
	store *MessageStore,
	greeting string,
) *ContactResolver {
	return &ContactResolver{
		users:    users,
		trips:    trips,
		store:    store,
		greeting: greeting,
	}
}

// IsEligible applies the role table. An existing conversation always wins;
// nobody is eligible with themselves.
func (r *ContactResolver) IsEligible(ctx context.Context, ownerID, candidateID uuid.UUID) (bool, error) {
	if ownerID == candidateID {
		return false, nil
	}

	owner, candidate, err := r.pair(ctx, ownerID, candidateID)
	if err != nil {
		return false, err
	}

	exists, err := r.store.Exists(ctx, ownerID, candidateID)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	if owner.Role == domain.RoleAdmin || candidate.Role == domain.RoleAdmin {
		return true, nil
	}

	var passengerID, driverID uuid.UUID
	switch {
	case owner.Role == domain.RolePassenger && candidate.Role == domain.RoleDriver:
		passengerID, driverID = owner.ID, candidate.ID
	case owner.Role == domain.RoleDriver && candidate.Role == domain.RolePassenger:
		passengerID, driverID = candidate.ID, owner.ID
	default:
		return false, nil
	}

	linked, err := r.trips.HasBookingLink(ctx, passengerID, driverID)
	if err != nil {
		return false, storeErr(err)
	}
	return linked, nil
}

// InitiateContact opens the conversation with a greeting from owner the first
// time and returns the existing conversation on every later call.
func (r *ContactResolver) InitiateContact(ctx context.Context, ownerID, candidateID uuid.UUID) (*domain.Conversation, error) {
	if ownerID == candidateID {
		return nil, apperr.Validation("user_id", "cannot contact yourself")
	}

	eligible, err := r.IsEligible(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, apperr.ErrNotEligible
	}

	conv := &domain.Conversation{
		Key:          domain.NewPairKey(ownerID, candidateID),
		Participants: [2]uuid.UUID{ownerID, candidateID},
	}

	greeting, created, err := r.store.AppendFirst(ctx, ownerID, candidateID, r.greeting)
	if err != nil {
		return nil, err
	}
	if created {
		conv.LastMessage = greeting
		conv.Created = true
		return conv, nil
	}

	last, err := r.store.Last(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}
	conv.LastMessage = last
	return conv, nil
}

func (r *ContactResolver) pair(ctx context.Context, ownerID, candidateID uuid.UUID) (*domain.User, *domain.User, error) {
	owner, err := r.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if owner == nil {
		return nil, nil, apperr.ErrUserNotFound
	}

	candidate, err := r.users.GetByID(ctx, candidateID)
	if err != nil {
		return nil, nil, storeErr(err)
	}
	if candidate == nil {
		return nil, nil, apperr.ErrUserNotFound
	}
	return owner, candidate, nil
}
