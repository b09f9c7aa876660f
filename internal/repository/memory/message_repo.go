package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vedran77/covoit/internal/domain"
)

type MessageRepo struct {
	s *Store
}

func between(m *domain.Message, a, b uuid.UUID) bool {
	return (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a)
}

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insertLocked(msg)
}

func (r *MessageRepo) insertLocked(msg *domain.Message) error {
	if msg.SenderID == msg.RecipientID {
		return errors.New("messageRepo.Create: sender equals recipient")
	}
	if _, ok := r.s.users[msg.SenderID]; !ok {
		return errors.Errorf("messageRepo.Create: unknown sender %s", msg.SenderID)
	}
	if _, ok := r.s.users[msg.RecipientID]; !ok {
		return errors.Errorf("messageRepo.Create: unknown recipient %s", msg.RecipientID)
	}
	cp := *msg
	r.s.messages = append(r.s.messages, &cp)
	return nil
}

func (r *MessageRepo) CreateFirst(_ context.Context, msg *domain.Message) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, m := range r.s.messages {
		if between(m, msg.SenderID, msg.RecipientID) {
			return false, nil
		}
	}
	if err := r.insertLocked(msg); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MessageRepo) ListBetween(_ context.Context, a, b uuid.UUID, after *uuid.UUID, limit int) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var cursor *domain.Message
	if after != nil {
		for _, m := range r.s.messages {
			if m.ID == *after {
				cursor = m
				break
			}
		}
		if cursor == nil {
			return []domain.Message{}, nil
		}
	}

	thread := []domain.Message{}
	for _, m := range r.s.messages {
		if !between(m, a, b) {
			continue
		}
		if cursor != nil && !cursor.Before(m) {
			continue
		}
		thread = append(thread, *m)
	}
	slices.SortFunc(thread, compareMessages)

	if limit > 0 && len(thread) > limit {
		thread = thread[:limit]
	}
	return thread, nil
}

func compareMessages(x, y domain.Message) int {
	switch {
	case x.Before(&y):
		return -1
	case y.Before(&x):
		return 1
	}
	return 0
}

func (r *MessageRepo) LastBetween(ctx context.Context, a, b uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var last *domain.Message
	for _, m := range r.s.messages {
		if between(m, a, b) && (last == nil || last.Before(m)) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r *MessageRepo) ExistsBetween(_ context.Context, a, b uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, m := range r.s.messages {
		if between(m, a, b) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MessageRepo) MarkSeen(_ context.Context, ownerID, counterpartID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages {
		if m.RecipientID == ownerID && m.SenderID == counterpartID && !m.Seen {
			m.Seen = true
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) MarkSeenIn(_ context.Context, ownerID, counterpartID uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, m := range r.s.messages {
		if m.RecipientID == ownerID && m.SenderID == counterpartID && !m.Seen && slices.Contains(ids, m.ID) {
			m.Seen = true
			n++
		}
	}
	return n, nil
}

func (r *MessageRepo) CountUnread(_ context.Context, ownerID uuid.UUID, counterpartID *uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, m := range r.s.messages {
		if m.RecipientID != ownerID || m.Seen {
			continue
		}
		if counterpartID != nil && m.SenderID != *counterpartID {
			continue
		}
		n++
	}
	return n, nil
}

func (r *MessageRepo) ListConversations(_ context.Context, ownerID uuid.UUID) ([]domain.ConversationSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byCounterpart := make(map[uuid.UUID]*domain.ConversationSummary)
	for _, m := range r.s.messages {
		if m.SenderID != ownerID && m.RecipientID != ownerID {
			continue
		}
		other := m.Counterpart(ownerID)
		sum, ok := byCounterpart[other]
		if !ok {
			sum = &domain.ConversationSummary{CounterpartID: other, LastMessage: *m}
			byCounterpart[other] = sum
		} else if sum.LastMessage.Before(m) {
			sum.LastMessage = *m
		}
		if m.RecipientID == ownerID && !m.Seen {
			sum.UnreadCount++
		}
	}

	out := make([]domain.ConversationSummary, 0, len(byCounterpart))
	for _, sum := range byCounterpart {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(x, y domain.ConversationSummary) int {
		return compareMessages(y.LastMessage, x.LastMessage)
	})
	return out, nil
}
