package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
)

// DMService composes the messaging parts behind the HTTP surface:
// eligibility, then persistence, then best-effort push.
type DMService struct {
	store    *MessageStore
	index    *ConversationIndex
	contacts *ContactResolver
	users    repository.UserRepository
	notifier Notifier
	log      *logger.Logger
}

func NewDMService(
	store *MessageStore,
	index *ConversationIndex,
	contacts *ContactResolver,
	users repository.UserRepository,
	log *logger.Logger,
) *DMService {
	return &DMService{
		store:    store,
		index:    index,
		contacts: contacts,
		users:    users,
		log:      log,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *DMService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ToID uuid.UUID `json:"to_id" validate:"required"`
	Body string    `json:"body" validate:"required"`
}

type ThreadResponse struct {
	Messages []domain.Message `json:"messages"`
}

// Send checks eligibility, stores the message and fires the notification.
// The returned message is durable whatever happens to the push.
func (s *DMService) Send(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if err := s.store.Validate(senderID, input.ToID, input.Body); err != nil {
		return nil, err
	}

	recipient, err := s.users.GetByID(ctx, input.ToID)
	if err != nil {
		return nil, storeErr(err)
	}
	if recipient == nil {
		return nil, apperr.ErrRecipientNotFound
	}

	// ErrUserNotFound from here means the sender is gone.
	eligible, err := s.contacts.IsEligible(ctx, senderID, input.ToID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, apperr.ErrNotEligible
	}

	msg, err := s.store.Append(ctx, senderID, input.ToID, input.Body)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyMessage(msg)
	}
	return msg, nil
}

// Thread returns the conversation with counterpart and marks the returned
// messages owner received as seen. Unread messages outside the page, or
// stored after it was read, stay unread.
func (s *DMService) Thread(ctx context.Context, ownerID, counterpartID uuid.UUID, after *uuid.UUID, limit int) (*ThreadResponse, error) {
	if err := s.requireUser(ctx, counterpartID); err != nil {
		return nil, err
	}

	msgs, err := s.store.ListBetween(ctx, ownerID, counterpartID, after, limit)
	if err != nil {
		return nil, err
	}

	var unseen []uuid.UUID
	for _, m := range msgs {
		if m.RecipientID == ownerID && !m.Seen {
			unseen = append(unseen, m.ID)
		}
	}
	if len(unseen) == 0 {
		return &ThreadResponse{Messages: msgs}, nil
	}

	n, err := s.store.MarkSeenIn(ctx, ownerID, counterpartID, unseen)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].RecipientID == ownerID {
			msgs[i].Seen = true
		}
	}
	if n > 0 && s.notifier != nil {
		s.notifier.NotifySeen(ownerID, counterpartID, n)
	}

	return &ThreadResponse{Messages: msgs}, nil
}

func (s *DMService) Conversations(ctx context.Context, ownerID uuid.UUID) ([]domain.ConversationSummary, error) {
	return s.index.ListConversations(ctx, ownerID)
}

func (s *DMService) UnreadCount(ctx context.Context, ownerID uuid.UUID, counterpartID *uuid.UUID) (int64, error) {
	return s.store.CountUnread(ctx, ownerID, counterpartID)
}

// Contact establishes contact with candidate. Only the first call sends the
// greeting, and only that call notifies.
func (s *DMService) Contact(ctx context.Context, ownerID, candidateID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.contacts.InitiateContact(ctx, ownerID, candidateID)
	if err != nil {
		return nil, err
	}
	if conv.Created && s.notifier != nil {
		s.notifier.NotifyMessage(conv.LastMessage)
	}
	return conv, nil
}

func (s *DMService) Eligibility(ctx context.Context, ownerID, candidateID uuid.UUID) (bool, error) {
	return s.contacts.IsEligible(ctx, ownerID, candidateID)
}

func (s *DMService) requireUser(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeErr(err)
	}
	if u == nil {
		return apperr.ErrUserNotFound
	}
	return nil
}
