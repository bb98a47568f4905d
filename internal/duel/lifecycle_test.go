package duel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
)

func newTestLifecycle(clock Clock, catalog TaskCatalog, selector TaskSelector) *Lifecycle {
	return NewLifecycle(catalog, selector, rating.NewEngine(rating.DefaultConfig()), clock, zerolog.Nop())
}

func startedDuel(t *testing.T, l *Lifecycle, r1, r2 int, cfg Configuration) *Duel {
	t.Helper()
	d, err := l.Start(context.Background(),
		Participant{UserID: 1, Rating: r1},
		Participant{UserID: 2, Rating: r2},
		cfg)
	require.NoError(t, err)
	d.ID = 10
	return d
}

func accepted(duelID, userID int64, at time.Time) Submission {
	return Submission{DuelID: duelID, UserID: userID, TaskKey: DefaultTaskKey, SubmitTime: at, Status: SubmissionDone, Verdict: VerdictAccepted}
}

func TestLifecycle_Start(t *testing.T) {
	clock := newFakeClock(t0)
	l := newTestLifecycle(clock, &stubCatalog{tasks: testTasks()}, &firstFitSelector{})

	d := startedDuel(t, l, 1500, 1400, ratedConfig(30))

	assert.Equal(t, StatusInProgress, d.Status)
	assert.Equal(t, 1500, d.User1InitRating)
	assert.Equal(t, 1400, d.User2InitRating)
	assert.Equal(t, t0, d.StartTime)
	assert.Equal(t, t0.Add(30*time.Minute), d.DeadlineTime)
	assert.Equal(t, "t1", d.Tasks[DefaultTaskKey].ID)
	assert.Nil(t, d.EndTime)
	assert.Nil(t, d.WinnerID)
}

func TestLifecycle_StartTaskSelectionFailed(t *testing.T) {
	clock := newFakeClock(t0)

	tests := []struct {
		name     string
		catalog  *stubCatalog
		selector *firstFitSelector
		cfg      Configuration
	}{
		{"catalog unavailable", &stubCatalog{err: errors.New("taski down")}, &firstFitSelector{}, ratedConfig(30)},
		{"selector refuses", &stubCatalog{tasks: testTasks()}, &firstFitSelector{err: errors.New("no match")}, ratedConfig(30)},
		{"not enough tasks", &stubCatalog{tasks: testTasks()[:1]}, &firstFitSelector{}, Configuration{
			MaxDurationMinutes: 30,
			Tasks:              map[string]TaskConfiguration{"A": {}, "B": {}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLifecycle(clock, tt.catalog, tt.selector)
			_, err := l.Start(context.Background(), Participant{UserID: 1}, Participant{UserID: 2}, tt.cfg)
			assert.ErrorIs(t, err, ErrTaskSelectionFailed)
		})
	}
}

func TestLifecycle_StartRejectsMalformedConfiguration(t *testing.T) {
	l := newTestLifecycle(newFakeClock(t0), &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
	_, err := l.Start(context.Background(), Participant{UserID: 1}, Participant{UserID: 2}, ratedConfig(0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTaskSelectionFailed)
}

func TestLifecycle_EvaluateFinish(t *testing.T) {
	clock := newFakeClock(t0)
	l := newTestLifecycle(clock, &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
	d := startedDuel(t, l, 1500, 1500, ratedConfig(30))

	t.Run("nothing accepted before deadline", func(t *testing.T) {
		winner, finish := l.EvaluateFinish(d, nil)
		assert.False(t, finish)
		assert.Nil(t, winner)
	})

	t.Run("only one user accepted", func(t *testing.T) {
		winner, finish := l.EvaluateFinish(d, []Submission{accepted(d.ID, 1, t0.Add(time.Minute))})
		require.True(t, finish)
		require.NotNil(t, winner)
		assert.Equal(t, int64(1), *winner)
	})

	t.Run("earlier submitter wins", func(t *testing.T) {
		winner, finish := l.EvaluateFinish(d, []Submission{
			accepted(d.ID, 1, t0.Add(5*time.Minute)),
			accepted(d.ID, 2, t0.Add(3*time.Minute)),
			accepted(d.ID, 1, t0.Add(9*time.Minute)),
		})
		require.True(t, finish)
		require.NotNil(t, winner)
		assert.Equal(t, int64(2), *winner)
	})

	t.Run("identical submit time is a draw", func(t *testing.T) {
		at := t0.Add(4 * time.Minute)
		winner, finish := l.EvaluateFinish(d, []Submission{accepted(d.ID, 1, at), accepted(d.ID, 2, at)})
		assert.True(t, finish)
		assert.Nil(t, winner)
	})

	t.Run("foreign and unaccepted submissions are ignored", func(t *testing.T) {
		rejected := accepted(d.ID, 2, t0.Add(time.Minute))
		rejected.Verdict = "Wrong Answer"
		running := accepted(d.ID, 2, t0.Add(time.Minute))
		running.Status = SubmissionRunning

		winner, finish := l.EvaluateFinish(d, []Submission{
			accepted(d.ID+1, 2, t0.Add(time.Minute)),
			accepted(d.ID, 99, t0.Add(time.Minute)),
			rejected,
			running,
		})
		assert.False(t, finish)
		assert.Nil(t, winner)
	})

	t.Run("winner regardless of deadline", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		defer clock.Advance(-2 * time.Hour)

		winner, finish := l.EvaluateFinish(d, []Submission{accepted(d.ID, 1, t0.Add(time.Minute))})
		require.True(t, finish)
		assert.Equal(t, int64(1), *winner)
	})

	t.Run("deadline passed without accepted solutions", func(t *testing.T) {
		clock.Advance(30 * time.Minute)
		defer clock.Advance(-30 * time.Minute)

		winner, finish := l.EvaluateFinish(d, nil)
		assert.True(t, finish)
		assert.Nil(t, winner)
	})

	t.Run("finished duel is not evaluated", func(t *testing.T) {
		done := *d
		done.Status = StatusFinished
		_, finish := l.EvaluateFinish(&done, []Submission{accepted(d.ID, 1, t0)})
		assert.False(t, finish)
	})
}

func TestLifecycle_FinishTwiceDoesNotReapplyRatings(t *testing.T) {
	clock := newFakeClock(t0)
	l := newTestLifecycle(clock, &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
	d := startedDuel(t, l, 1500, 1500, ratedConfig(30))

	clock.Advance(10 * time.Minute)
	update, err := l.Finish(d, int64Ptr(1))
	require.NoError(t, err)
	assert.Equal(t, RatingUpdate{User1Delta: 20, User2Delta: -20, User1Final: 1520, User2Final: 1480}, update)
	assert.Equal(t, StatusFinished, d.Status)
	require.NotNil(t, d.EndTime)
	assert.Equal(t, t0.Add(10*time.Minute), *d.EndTime)

	clock.Advance(time.Minute)
	_, err = l.Finish(d, int64Ptr(2))
	assert.ErrorIs(t, err, ErrAlreadyFinished)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), *d.WinnerID)
	assert.Equal(t, 1520, *d.User1FinalRating)
	assert.Equal(t, 1480, *d.User2FinalRating)
	assert.Equal(t, t0.Add(10*time.Minute), *d.EndTime)
}

func TestLifecycle_FinishValidatesWinner(t *testing.T) {
	l := newTestLifecycle(newFakeClock(t0), &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
	d := startedDuel(t, l, 1500, 1500, ratedConfig(30))

	_, err := l.Finish(d, int64Ptr(3))
	assert.ErrorIs(t, err, ErrInvalidWinner)
	assert.Equal(t, StatusInProgress, d.Status)

	pending := &Duel{User1ID: 1, User2ID: 2, Status: StatusPending}
	_, err = l.Finish(pending, nil)
	assert.ErrorIs(t, err, ErrNotInProgress)
}

func TestLifecycle_RatingOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		r1, r2 int
		winner *int64
		rated  bool
		final1 int
		final2 int
	}{
		{"equal win", 1500, 1500, int64Ptr(1), true, 1520, 1480},
		{"equal draw", 1500, 1500, nil, true, 1500, 1500},
		{"upset", 1400, 1600, int64Ptr(1), true, 1430, 1576},
		{"favorite", 1600, 1400, int64Ptr(1), true, 1608, 1390},
		{"second seat wins", 1600, 1400, int64Ptr(2), true, 1576, 1430},
		{"unrated", 1400, 1600, int64Ptr(1), false, 1400, 1600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLifecycle(newFakeClock(t0), &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
			cfg := ratedConfig(30)
			cfg.IsRated = tt.rated
			d := startedDuel(t, l, tt.r1, tt.r2, cfg)

			update, err := l.Finish(d, tt.winner)
			require.NoError(t, err)
			assert.Equal(t, tt.final1, update.User1Final)
			assert.Equal(t, tt.final2, update.User2Final)
			assert.Equal(t, tt.final1, *d.User1FinalRating)
			assert.Equal(t, tt.final2, *d.User2FinalRating)
		})
	}
}

func TestLifecycle_RatingChangesPreview(t *testing.T) {
	l := newTestLifecycle(newFakeClock(t0), &stubCatalog{tasks: testTasks()}, &firstFitSelector{})
	d := startedDuel(t, l, 1400, 1600, ratedConfig(30))

	assert.Equal(t, 30, l.RatingChanges(d, 1).Win)
	assert.Equal(t, -24, l.RatingChanges(d, 2).Lose)

	d.Configuration.IsRated = false
	assert.Equal(t, rating.Changes{}, l.RatingChanges(d, 1))
}
