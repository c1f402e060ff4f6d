package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/rsvp-admission/internal/domain"
)

func registrant(userID string) domain.Registrant {
	return domain.Registrant{UserID: userID}
}

func seedQueue(t *testing.T, repo *MemoryWaitlistRepository, eventID string, userIDs ...string) []*domain.WaitlistEntry {
	t.Helper()
	entries := make([]*domain.WaitlistEntry, len(userIDs))
	for i, id := range userIDs {
		entry, err := repo.Join(context.Background(), eventID, registrant(id))
		require.NoError(t, err)
		entries[i] = entry
	}
	return entries
}

func TestJoin_AssignsDensePositions(t *testing.T) {
	repo := NewMemoryWaitlistRepository()

	entries := seedQueue(t, repo, "event-1", "a", "b", "c")

	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Position)
		assert.Equal(t, domain.WaitlistStatusWaiting, entry.Status)
		assert.Nil(t, entry.NotifiedAt)
	}
}

func TestJoin_PositionsScopedPerEvent(t *testing.T) {
	repo := NewMemoryWaitlistRepository()

	seedQueue(t, repo, "event-1", "a", "b")
	entries := seedQueue(t, repo, "event-2", "a")

	assert.Equal(t, 1, entries[0].Position)
}

func TestJoin_RejectsLiveDuplicate(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	first := seedQueue(t, repo, "event-1", "a")[0]

	_, err := repo.Join(ctx, "event-1", registrant("a"))
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)

	// A terminal entry no longer blocks rejoining
	_, err = repo.SetStatus(ctx, first.ID, domain.WaitlistStatusExpired)
	require.NoError(t, err)

	rejoined, err := repo.Join(ctx, "event-1", registrant("a"))
	require.NoError(t, err)
	assert.Equal(t, 1, rejoined.Position)
}

func TestRemove_RenumbersLaterLiveEntries(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b", "c")

	require.NoError(t, repo.Remove(ctx, entries[1].ID))

	live, err := repo.ListLive(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "user:a", live[0].Registrant.Key())
	assert.Equal(t, 1, live[0].Position)
	assert.Equal(t, "user:c", live[1].Registrant.Key())
	assert.Equal(t, 2, live[1].Position)

	assert.ErrorIs(t, repo.Remove(ctx, entries[1].ID), domain.ErrEntryNotFound)
}

func TestSetStatus_StampsNotifiedAt(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entry := seedQueue(t, repo, "event-1", "a")[0]

	before := time.Now()
	notified, err := repo.SetStatus(ctx, entry.ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)

	require.NotNil(t, notified.NotifiedAt)
	assert.False(t, notified.NotifiedAt.Before(before))
	// Notified entries keep their queue slot
	assert.Equal(t, 1, notified.Position)
}

func TestSetStatus_LeavingLiveSetRenumbers(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b", "c")

	_, err := repo.SetStatus(ctx, entries[0].ID, domain.WaitlistStatusConverted)
	require.NoError(t, err)

	live, err := repo.ListLive(ctx, "event-1")
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, 1, live[0].Position)
	assert.Equal(t, 2, live[1].Position)
}

func TestSetStatus_RejectsIllegalTransition(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entry := seedQueue(t, repo, "event-1", "a")[0]

	_, err := repo.SetStatus(ctx, entry.ID, domain.WaitlistStatusExpired)
	require.NoError(t, err)

	_, err = repo.SetStatus(ctx, entry.ID, domain.WaitlistStatusConverted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestNextWaiting_SkipsNotifiedHead(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b")

	_, err := repo.SetStatus(ctx, entries[0].ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)

	next, err := repo.NextWaiting(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, "user:b", next.Registrant.Key())

	_, err = repo.SetStatus(ctx, entries[1].ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)

	_, err = repo.NextWaiting(ctx, "event-1")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestPositionOf_OnlyLiveEntriesCount(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b")

	position, queued, err := repo.PositionOf(ctx, "event-1", registrant("b"))
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Equal(t, 2, position)

	_, err = repo.SetStatus(ctx, entries[1].ID, domain.WaitlistStatusExpired)
	require.NoError(t, err)

	_, queued, err = repo.PositionOf(ctx, "event-1", registrant("b"))
	require.NoError(t, err)
	assert.False(t, queued)
}

func TestListOverdueNotified_FiltersByCutoff(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b")

	_, err := repo.SetStatus(ctx, entries[0].ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)

	// A cutoff in the past catches nothing
	overdue, err := repo.ListOverdueNotified(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	// A future cutoff catches the notified entry but not the waiting one
	overdue, err = repo.ListOverdueNotified(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, entries[0].ID, overdue[0].ID)

	// Limit is honored
	overdue, err = repo.ListOverdueNotified(ctx, time.Now().Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, overdue)
}

func TestCountLive(t *testing.T) {
	repo := NewMemoryWaitlistRepository()
	ctx := context.Background()

	entries := seedQueue(t, repo, "event-1", "a", "b", "c")
	_, err := repo.SetStatus(ctx, entries[0].ID, domain.WaitlistStatusNotified)
	require.NoError(t, err)
	_, err = repo.SetStatus(ctx, entries[1].ID, domain.WaitlistStatusExpired)
	require.NoError(t, err)

	count, err := repo.CountLive(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
