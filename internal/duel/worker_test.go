package duel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/duel-platform/internal/duel/queue"
	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
)

func TestMatchmakingWorker_TickCreatesDuel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.svc.StartSearch(ctx, 1))
	require.NoError(t, h.svc.StartSearch(ctx, 2))

	w := NewMatchmakingWorker(h.pool, h.svc, nil, time.Second, zerolog.Nop())
	assert.Equal(t, 1, w.Tick(ctx))
	assert.Zero(t, h.pool.Count())

	d, err := h.store.GetActiveDuel(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.User1ID)
	assert.Equal(t, int64(2), d.User2ID)

	assert.Zero(t, w.Tick(ctx))
}

func TestMatchmakingWorker_FailedPairDoesNotStopDraining(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.svc.StartSearch(ctx, 1))
	require.NoError(t, h.svc.StartSearch(ctx, 2))
	require.NoError(t, h.svc.StartSearch(ctx, 3))
	// closest pair (3, 99) fails: 99 is unknown to the store
	require.NoError(t, h.pool.AddUser(99, 2000, t0))

	w := NewMatchmakingWorker(h.pool, h.svc, nil, time.Second, zerolog.Nop())
	assert.Equal(t, 1, w.Tick(ctx))

	_, err := h.store.GetActiveDuel(ctx, 1)
	assert.NoError(t, err)
	_, err = h.store.GetActiveDuel(ctx, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	// the known member of the failed pair keeps searching from its old place
	assert.Equal(t, 1, h.pool.Count())
	entry, ok := h.pool.TryGetWaitingUser(3)
	require.True(t, ok)
	assert.True(t, entry.EnqueuedAt.Equal(t0))
	assert.False(t, h.pool.IsUserWaiting(99))
}

func TestMatchmakingWorker_TaskSelectionFailureKeepsUsersWaiting(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	lifecycle := NewLifecycle(&stubCatalog{err: errors.New("catalog unavailable")}, &firstFitSelector{},
		rating.NewEngine(rating.DefaultConfig()), h.clock, zerolog.Nop())
	svc := NewService(h.store, h.pool, lifecycle, ServiceOptions{Notifier: h.notifier}, zerolog.Nop())

	require.NoError(t, svc.StartSearch(ctx, 1))
	h.clock.Advance(time.Second)
	require.NoError(t, svc.StartSearch(ctx, 2))

	w := NewMatchmakingWorker(h.pool, svc, nil, time.Second, zerolog.Nop())
	assert.Zero(t, w.Tick(ctx))
	assert.Zero(t, w.Tick(ctx))

	require.Equal(t, 2, h.pool.Count())
	first, ok := h.pool.TryGetWaitingUser(1)
	require.True(t, ok)
	assert.True(t, first.EnqueuedAt.Equal(t0))
	assert.NotContains(t, h.notifier.Types(1), EventDuelStarted)
}

func TestService_RequeueUserWithActiveDuel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.startDuel(t, 1, 2)

	err := h.svc.Requeue(ctx, queue.WaitingEntry{UserID: 1, Rating: 1500, EnqueuedAt: t0})
	assert.ErrorIs(t, err, ErrActiveDuel)
	assert.False(t, h.pool.IsUserWaiting(1))
	assert.Contains(t, h.notifier.Types(1), EventSearchCanceled)
}

func TestService_RequeueKeepsInvitation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.svc.Requeue(ctx, queue.WaitingEntry{
		UserID:             1,
		Rating:             1500,
		EnqueuedAt:         t0,
		ExpectedOpponentID: int64Ptr(2),
		ConfigurationID:    int64Ptr(7),
	}))
	entry, ok := h.pool.TryGetWaitingUser(1)
	require.True(t, ok)
	require.NotNil(t, entry.ExpectedOpponentID)
	assert.Equal(t, int64(2), *entry.ExpectedOpponentID)
	require.NotNil(t, entry.ConfigurationID)
	assert.Equal(t, int64(7), *entry.ConfigurationID)

	// a user who searched again meanwhile keeps the new entry
	assert.NoError(t, h.svc.Requeue(ctx, queue.WaitingEntry{UserID: 1, Rating: 1500, EnqueuedAt: t0}))
	entry, _ = h.pool.TryGetWaitingUser(1)
	assert.NotNil(t, entry.ExpectedOpponentID)
}

func TestMatchmakingWorker_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewMatchmakingWorker(h.pool, h.svc, nil, 10*time.Millisecond, zerolog.Nop()).Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

// flakyStore fails reads of one duel.
type flakyStore struct {
	*memoryStore
	failID int64
}

func (s *flakyStore) GetDuel(ctx context.Context, id int64) (*Duel, error) {
	if id == s.failID {
		return nil, errors.New("connection reset")
	}
	return s.memoryStore.GetDuel(ctx, id)
}

func TestFinishWatcher_SkipsFailingDuel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.users[4] = User{ID: 4, Nickname: "dave", Rating: 2000}

	first := h.startDuel(t, 1, 2)
	second := h.startDuel(t, 3, 4)

	store := &flakyStore{memoryStore: h.store, failID: first.ID}
	lifecycle := NewLifecycle(&stubCatalog{tasks: testTasks()}, &firstFitSelector{},
		rating.NewEngine(rating.DefaultConfig()), h.clock, zerolog.Nop())
	svc := NewService(store, h.pool, lifecycle, ServiceOptions{Notifier: h.notifier}, zerolog.Nop())

	h.clock.Advance(2 * time.Hour)
	w := NewFinishWatcher(store, svc, nil, FinishWatcherOptions{Parallelism: 2}, zerolog.Nop())
	w.Tick(ctx)

	d1, _ := h.store.GetDuel(ctx, first.ID)
	d2, _ := h.store.GetDuel(ctx, second.ID)
	assert.Equal(t, StatusInProgress, d1.Status)
	assert.Equal(t, StatusFinished, d2.Status)
}

func TestFinishWatcher_PagesPastBatchSize(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.store.users[4] = User{ID: 4, Nickname: "dave", Rating: 2000}
	h.store.users[5] = User{ID: 5, Nickname: "erin", Rating: 1200}
	h.store.users[6] = User{ID: 6, Nickname: "frank", Rating: 1200}

	stuck := h.startDuel(t, 1, 2)
	second := h.startDuel(t, 3, 4)
	third := h.startDuel(t, 5, 6)
	h.store.addSubmission(accepted(second.ID, 4, t0.Add(time.Minute)))
	h.store.addSubmission(accepted(third.ID, 5, t0.Add(time.Minute)))

	store := &flakyStore{memoryStore: h.store, failID: stuck.ID}
	lifecycle := NewLifecycle(&stubCatalog{tasks: testTasks()}, &firstFitSelector{},
		rating.NewEngine(rating.DefaultConfig()), h.clock, zerolog.Nop())
	svc := NewService(store, h.pool, lifecycle, ServiceOptions{Notifier: h.notifier}, zerolog.Nop())

	w := NewFinishWatcher(store, svc, nil, FinishWatcherOptions{BatchSize: 1, Parallelism: 1}, zerolog.Nop())
	w.Tick(ctx)

	d1, _ := h.store.GetDuel(ctx, stuck.ID)
	d2, _ := h.store.GetDuel(ctx, second.ID)
	d3, _ := h.store.GetDuel(ctx, third.ID)
	assert.Equal(t, StatusInProgress, d1.Status)
	assert.Equal(t, StatusFinished, d2.Status)
	assert.Equal(t, StatusFinished, d3.Status)
	require.NotNil(t, d3.WinnerID)
	assert.Equal(t, int64(5), *d3.WinnerID)
}

func TestFinishWatcher_CancelledContext(t *testing.T) {
	h := newHarness(t)
	d := h.startDuel(t, 1, 2)
	h.clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewFinishWatcher(h.store, h.svc, nil, FinishWatcherOptions{}, zerolog.Nop()).Tick(ctx)

	stored, _ := h.store.GetDuel(context.Background(), d.ID)
	assert.Equal(t, StatusInProgress, stored.Status)
}
