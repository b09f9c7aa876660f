package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
)

var clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMessage(from, to uuid.UUID, body string, offset time.Duration) *domain.Message {
	return &domain.Message{
		ID:          uuid.Must(uuid.NewV7()),
		SenderID:    from,
		RecipientID: to,
		Body:        body,
		SentAt:      clock.Add(offset),
	}
}

func Test_MessageRepo_ListBetweenIsSymmetricAndOrdered(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	a := createUser(t, domain.RolePassenger)
	b := createUser(t, domain.RoleDriver)
	c := createUser(t, domain.RolePassenger)

	m1 := newMessage(a.ID, b.ID, "Hi", 0)
	m2 := newMessage(b.ID, a.ID, "Hello", time.Second)
	m3 := newMessage(a.ID, b.ID, "same instant", time.Second)
	other := newMessage(c.ID, b.ID, "not in thread", 0)
	for _, m := range []*domain.Message{m3, m1, other, m2} {
		require.NoError(t, repo.Create(t.Context(), m))
	}

	ab, err := repo.ListBetween(t.Context(), a.ID, b.ID, nil, 0)
	require.NoError(t, err)
	ba, err := repo.ListBetween(t.Context(), b.ID, a.ID, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	require.Len(t, ab, 3)
	assert.Equal(t, m1.ID, ab[0].ID)
	// m2 and m3 share sent_at; v7 ids break the tie in creation order
	assert.Equal(t, m2.ID, ab[1].ID)
	assert.Equal(t, m3.ID, ab[2].ID)

	after, err := repo.ListBetween(t.Context(), a.ID, b.ID, &m1.ID, 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, m2.ID, after[0].ID)
}

func Test_MessageRepo_MarkSeenAndCountUnread(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	owner := createUser(t, domain.RolePassenger)
	d1 := createUser(t, domain.RoleDriver)
	d2 := createUser(t, domain.RoleDriver)

	require.NoError(t, repo.Create(t.Context(), newMessage(d1.ID, owner.ID, "one", 0)))
	require.NoError(t, repo.Create(t.Context(), newMessage(d1.ID, owner.ID, "two", time.Second)))
	require.NoError(t, repo.Create(t.Context(), newMessage(d2.ID, owner.ID, "three", 2*time.Second)))
	require.NoError(t, repo.Create(t.Context(), newMessage(owner.ID, d1.ID, "mine", 3*time.Second)))

	total, err := repo.CountUnread(t.Context(), owner.ID, nil)
	require.NoError(t, err)
	fromD1, err := repo.CountUnread(t.Context(), owner.ID, &d1.ID)
	require.NoError(t, err)
	fromD2, err := repo.CountUnread(t.Context(), owner.ID, &d2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, total, fromD1+fromD2)

	n, err := repo.MarkSeen(t.Context(), owner.ID, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkSeen(t.Context(), owner.ID, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	total, err = repo.CountUnread(t.Context(), owner.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func Test_MessageRepo_RejectsSelfMessage(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	u := createUser(t, domain.RolePassenger)

	err := repo.Create(t.Context(), newMessage(u.ID, u.ID, "me", 0))
	assert.Error(t, err)
}

func Test_MessageRepo_CreateFirstIsIdempotentUnderConcurrency(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	p := createUser(t, domain.RolePassenger)
	d := createUser(t, domain.RoleDriver)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := repo.CreateFirst(t.Context(), newMessage(p.ID, d.ID, "greeting", 0))
			assert.NoError(t, err)
			results[i] = created
		}(i)
	}
	wg.Wait()

	created := 0
	for _, ok := range results {
		if ok {
			created++
		}
	}
	assert.Equal(t, 1, created)

	msgs, err := repo.ListBetween(t.Context(), p.ID, d.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func Test_MessageRepo_MarkSeenInOnlyTouchesListedMessages(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	owner := createUser(t, domain.RolePassenger)
	d := createUser(t, domain.RoleDriver)

	shown := newMessage(d.ID, owner.ID, "shown", 0)
	hidden := newMessage(d.ID, owner.ID, "hidden", time.Second)
	mine := newMessage(owner.ID, d.ID, "mine", 2*time.Second)
	for _, m := range []*domain.Message{shown, hidden, mine} {
		require.NoError(t, repo.Create(t.Context(), m))
	}

	n, err := repo.MarkSeenIn(t.Context(), owner.ID, d.ID, []uuid.UUID{shown.ID, mine.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.MarkSeenIn(t.Context(), owner.ID, d.ID, []uuid.UUID{shown.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	unread, err := repo.CountUnread(t.Context(), owner.ID, &d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	got, err := repo.GetByID(t.Context(), mine.ID)
	require.NoError(t, err)
	assert.False(t, got.Seen)
}

func Test_MessageRepo_ConcurrentAppendsAreAllVisible(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	p := createUser(t, domain.RolePassenger)
	d := createUser(t, domain.RoleDriver)

	const n = 20
	ids := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			from, to := p.ID, d.ID
			if i%2 == 1 {
				from, to = to, from
			}
			m := newMessage(from, to, "ping", 0)
			assert.NoError(t, repo.Create(t.Context(), m))
			ids <- m.ID
		}()
	}
	wg.Wait()
	close(ids)

	msgs, err := repo.ListBetween(t.Context(), p.ID, d.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, msgs, n)

	stored := make(map[uuid.UUID]bool, n)
	for _, m := range msgs {
		stored[m.ID] = true
	}
	for id := range ids {
		assert.True(t, stored[id], "message %s missing", id)
	}
}

func Test_MessageRepo_ConcurrentMarkSeenCountsAddUp(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	owner := createUser(t, domain.RolePassenger)
	d := createUser(t, domain.RoleDriver)

	const unread = 15
	for i := range unread {
		require.NoError(t, repo.Create(t.Context(), newMessage(d.ID, owner.ID, "msg", time.Duration(i)*time.Millisecond)))
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int64
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.MarkSeen(t.Context(), owner.ID, d.ID)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(unread), total)

	n, err := repo.MarkSeen(t.Context(), owner.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func Test_MessageRepo_ListConversations(t *testing.T) {
	requireDB(t)
	repo := NewMessageRepo(testPool)
	owner := createUser(t, domain.RolePassenger)
	d1 := createUser(t, domain.RoleDriver)
	d2 := createUser(t, domain.RoleDriver)

	require.NoError(t, repo.Create(t.Context(), newMessage(owner.ID, d1.ID, "to d1", 0)))
	require.NoError(t, repo.Create(t.Context(), newMessage(d1.ID, owner.ID, "from d1", time.Second)))
	require.NoError(t, repo.Create(t.Context(), newMessage(d2.ID, owner.ID, "from d2", 2*time.Second)))

	convs, err := repo.ListConversations(t.Context(), owner.ID)
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, d2.ID, convs[0].CounterpartID)
	assert.Equal(t, "from d2", convs[0].LastMessage.Body)
	assert.Equal(t, int64(1), convs[0].UnreadCount)

	assert.Equal(t, d1.ID, convs[1].CounterpartID)
	assert.Equal(t, "from d1", convs[1].LastMessage.Body)
	assert.Equal(t, int64(1), convs[1].UnreadCount)
}
