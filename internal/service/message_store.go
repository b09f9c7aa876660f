package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	apperr "github.com/vedran77/covoit/pkg/errors"
)

// MessageStore is the only write path for chat messages.
type MessageStore struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	maxBody  int
	now      func() time.Time
}

func NewMessageStore(messages repository.MessageRepository, users repository.UserRepository, maxBody int) *MessageStore {
	return &MessageStore{
		messages: messages,
		users:    users,
		maxBody:  maxBody,
		now:      time.Now,
	}
}

// Append validates and persists one message.
func (s *MessageStore) Append(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, error) {
	msg, err := s.build(ctx, senderID, recipientID, body)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, storeErr(err)
	}
	return msg, nil
}

// AppendFirst persists the message only if the pair has never exchanged one.
// It returns the stored message and true, or nil and false when a
// conversation already existed.
func (s *MessageStore) AppendFirst(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, bool, error) {
	msg, err := s.build(ctx, senderID, recipientID, body)
	if err != nil {
		return nil, false, err
	}
	created, err := s.messages.CreateFirst(ctx, msg)
	if err != nil {
		return nil, false, storeErr(err)
	}
	if !created {
		return nil, false, nil
	}
	return msg, true, nil
}

// Validate runs the checks that need no store access.
func (s *MessageStore) Validate(senderID, recipientID uuid.UUID, body string) error {
	if senderID == uuid.Nil {
		return apperr.Validation("sender_id", "sender_id is required")
	}
	if recipientID == uuid.Nil {
		return apperr.Validation("to_id", "to_id is required")
	}
	if senderID == recipientID {
		return apperr.Validation("to_id", "cannot send a message to yourself")
	}
	if strings.TrimSpace(body) == "" {
		return apperr.Validation("body", "body is required")
	}
	if utf8.RuneCountInString(body) > s.maxBody {
		return apperr.Validation("body", fmt.Sprintf("body must be at most %d characters", s.maxBody))
	}
	return nil
}

func (s *MessageStore) build(ctx context.Context, senderID, recipientID uuid.UUID, body string) (*domain.Message, error) {
	if err := s.Validate(senderID, recipientID, body); err != nil {
		return nil, err
	}

	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, storeErr(err)
	}
	if recipient == nil {
		return nil, apperr.ErrRecipientNotFound
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Internal("generating message id")
	}

	return &domain.Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		// postgres keeps microseconds
		SentAt: s.now().UTC().Truncate(time.Microsecond),
	}, nil
}

// ListBetween returns the thread between a and b in (sent_at, id) order,
// resuming strictly after the given message when after is set.
func (s *MessageStore) ListBetween(ctx context.Context, a, b uuid.UUID, after *uuid.UUID, limit int) ([]domain.Message, error) {
	if limit < 0 {
		return nil, apperr.Validation("limit", "limit must not be negative")
	}
	if after != nil {
		cursor, err := s.messages.GetByID(ctx, *after)
		if err != nil {
			return nil, storeErr(err)
		}
		if cursor == nil || !inThread(cursor, a, b) {
			return nil, apperr.Validation("after", "after does not reference a message of this conversation")
		}
	}

	msgs, err := s.messages.ListBetween(ctx, a, b, after, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return msgs, nil
}

// MarkSeen flips every unseen message from counterpart to owner and returns
// how many changed. A second call returns 0.
func (s *MessageStore) MarkSeen(ctx context.Context, ownerID, counterpartID uuid.UUID) (int64, error) {
	n, err := s.messages.MarkSeen(ctx, ownerID, counterpartID)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// MarkSeenIn flips the listed messages from counterpart to owner that are
// still unseen. Ids of other threads or directions are ignored.
func (s *MessageStore) MarkSeenIn(ctx context.Context, ownerID, counterpartID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.messages.MarkSeenIn(ctx, ownerID, counterpartID, ids)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// CountUnread counts unseen messages addressed to owner, from counterpart only
// when it is set.
func (s *MessageStore) CountUnread(ctx context.Context, ownerID uuid.UUID, counterpartID *uuid.UUID) (int64, error) {
	n, err := s.messages.CountUnread(ctx, ownerID, counterpartID)
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// Exists reports whether a and b have exchanged at least one message.
func (s *MessageStore) Exists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ok, err := s.messages.ExistsBetween(ctx, a, b)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

// Last returns the newest message between a and b, nil if none.
func (s *MessageStore) Last(ctx context.Context, a, b uuid.UUID) (*domain.Message, error) {
	msg, err := s.messages.LastBetween(ctx, a, b)
	if err != nil {
		return nil, storeErr(err)
	}
	return msg, nil
}

func inThread(m *domain.Message, a, b uuid.UUID) bool {
	return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
}
