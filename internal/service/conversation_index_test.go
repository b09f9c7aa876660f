package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/internal/service/mocks"
)

func Test_ConversationIndex_OneEntryPerCounterpartNewestFirst(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, domain.RolePassenger)
	d1 := f.user(t, domain.RoleDriver)
	d2 := f.user(t, domain.RoleDriver)

	_, err := f.store.Append(t.Context(), owner.ID, d1.ID, "to d1")
	require.NoError(t, err)
	_, err = f.store.Append(t.Context(), d2.ID, owner.ID, "from d2")
	require.NoError(t, err)
	_, err = f.store.Append(t.Context(), d1.ID, owner.ID, "from d1")
	require.NoError(t, err)
	_, err = f.store.Append(t.Context(), d1.ID, owner.ID, "again from d1")
	require.NoError(t, err)

	convs, err := f.index.ListConversations(t.Context(), owner.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, d1.ID, convs[0].CounterpartID)
	assert.Equal(t, "again from d1", convs[0].LastMessage.Body)
	assert.Equal(t, int64(2), convs[0].UnreadCount)

	assert.Equal(t, d2.ID, convs[1].CounterpartID)
	assert.Equal(t, int64(1), convs[1].UnreadCount)

	// the counterpart's inbox sees the same conversation from the other side
	theirs, err := f.index.ListConversations(t.Context(), d1.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, owner.ID, theirs[0].CounterpartID)
	assert.Equal(t, int64(1), theirs[0].UnreadCount)
}

func Test_ConversationIndex_MatchesFullScan(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, domain.RoleAdmin)
	others := []*domain.User{
		f.user(t, domain.RolePassenger),
		f.user(t, domain.RoleDriver),
		f.user(t, domain.RolePassenger),
	}
	for i := range 9 {
		other := others[i%len(others)]
		from, to := owner.ID, other.ID
		if i%2 == 0 {
			from, to = to, from
		}
		_, err := f.store.Append(t.Context(), from, to, "m")
		require.NoError(t, err)
	}

	convs, err := f.index.ListConversations(t.Context(), owner.ID)
	require.NoError(t, err)
	require.Len(t, convs, len(others))

	for _, c := range convs {
		thread, err := f.store.ListBetween(t.Context(), owner.ID, c.CounterpartID, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, thread[len(thread)-1], c.LastMessage)

		unread, err := f.store.CountUnread(t.Context(), owner.ID, &c.CounterpartID)
		require.NoError(t, err)
		assert.Equal(t, unread, c.UnreadCount)
	}
	for i := 1; i < len(convs); i++ {
		assert.True(t, convs[i].LastMessage.Before(&convs[i-1].LastMessage))
	}
}

func Test_ConversationIndex_EmptyInbox(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, domain.RolePassenger)

	convs, err := f.index.ListConversations(t.Context(), owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, convs)
	assert.Empty(t, convs)
}

func Test_ConversationIndex_CancelledCallerDoesNotFailOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockMessageRepository(ctrl)
	index := service.NewConversationIndex(messages)

	owner := uuid.New()
	want := []domain.ConversationSummary{{CounterpartID: uuid.New(), UnreadCount: 1}}
	started := make(chan struct{})
	release := make(chan struct{})

	messages.EXPECT().ListConversations(gomock.Any(), owner).
		DoAndReturn(func(ctx context.Context, _ uuid.UUID) ([]domain.ConversationSummary, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return want, nil
		}).Times(1)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := index.ListConversations(ctxA, owner)
		errA <- err
	}()

	<-started
	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	// The query is still in flight, so this caller joins it.
	type result struct {
		convs []domain.ConversationSummary
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		convs, err := index.ListConversations(context.Background(), owner)
		resB <- result{convs, err}
	}()

	close(release)
	got := <-resB
	require.NoError(t, got.err)
	assert.Equal(t, want, got.convs)
}
