package service

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository"
	"golang.org/x/sync/singleflight"
)

const inboxQueryTimeout = 10 * time.Second

// ConversationIndex derives a user's inbox from the message table on every
// read. Concurrent reads for the same owner share one query.
type ConversationIndex struct {
	messages repository.MessageRepository
	group    singleflight.Group
}

func NewConversationIndex(messages repository.MessageRepository) *ConversationIndex {
	return &ConversationIndex{messages: messages}
}

// ListConversations returns one entry per counterpart ordered by the last
// message, newest first. The shared query is not tied to any single caller:
// a caller that gives up gets its own ctx error, the others keep waiting.
func (i *ConversationIndex) ListConversations(ctx context.Context, ownerID uuid.UUID) ([]domain.ConversationSummary, error) {
	ch := i.group.DoChan(ownerID.String(), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inboxQueryTimeout)
		defer cancel()
		return i.messages.ListConversations(qctx, ownerID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, storeErr(res.Err)
	}

	convs := slices.Clone(res.Val.([]domain.ConversationSummary))
	if convs == nil {
		convs = []domain.ConversationSummary{}
	}
	return convs, nil
}
