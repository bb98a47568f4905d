package duel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
)

// Lifecycle drives a single duel through Pending -> InProgress -> Finished.
// It mutates the Duel it is given and never touches persistence.
type Lifecycle struct {
	catalog  TaskCatalog
	selector TaskSelector
	ratings  *rating.Engine
	clock    Clock
	logger   zerolog.Logger
}

// NewLifecycle creates a lifecycle with its collaborators.
func NewLifecycle(catalog TaskCatalog, selector TaskSelector, ratings *rating.Engine, clock Clock, logger zerolog.Logger) *Lifecycle {
	if clock == nil {
		clock = SystemClock{}
	}
	if ratings == nil {
		ratings = rating.NewEngine(rating.DefaultConfig())
	}
	return &Lifecycle{
		catalog:  catalog,
		selector: selector,
		ratings:  ratings,
		clock:    clock,
		logger:   logger.With().Str("component", "duel_lifecycle").Logger(),
	}
}

// Start builds an InProgress duel for two participants: ratings are frozen,
// tasks are chosen for every slot and the deadline is derived from cfg.
func (l *Lifecycle) Start(ctx context.Context, p1, p2 Participant, cfg Configuration) (*Duel, error) {
	if cfg.MaxDurationMinutes <= 0 {
		return nil, fmt.Errorf("configuration: max duration must be positive, got %d", cfg.MaxDurationMinutes)
	}

	candidates, err := l.catalog.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tasks: %w", ErrTaskSelectionFailed, err)
	}

	tasks, err := l.selector.ChooseTasks(p1, p2, cfg, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTaskSelectionFailed, err)
	}
	for _, key := range cfg.SlotKeys() {
		if _, ok := tasks[key]; !ok {
			return nil, fmt.Errorf("%w: slot %s left empty", ErrTaskSelectionFailed, key)
		}
	}

	start := l.clock.Now()
	d := &Duel{
		User1ID:         p1.UserID,
		User2ID:         p2.UserID,
		Status:          StatusInProgress,
		Configuration:   cfg,
		Tasks:           tasks,
		StartTime:       start,
		DeadlineTime:    start.Add(cfg.Duration()),
		User1InitRating: p1.Rating,
		User2InitRating: p2.Rating,
		User1Solutions:  map[string]string{},
		User2Solutions:  map[string]string{},
	}

	l.logger.Debug().
		Int64("user1_id", d.User1ID).
		Int64("user2_id", d.User2ID).
		Int("tasks", len(tasks)).
		Time("deadline", d.DeadlineTime).
		Msg("duel started")

	return d, nil
}

// EvaluateFinish decides whether an InProgress duel is over and who won.
// Only accepted submissions of this duel's participants count, the earliest per user.
// A nil winner with finish=true is a draw.
func (l *Lifecycle) EvaluateFinish(d *Duel, accepted []Submission) (winnerID *int64, finish bool) {
	if d.Status != StatusInProgress {
		return nil, false
	}

	first1, ok1 := earliestAccepted(d.ID, d.User1ID, accepted)
	first2, ok2 := earliestAccepted(d.ID, d.User2ID, accepted)

	switch {
	case !ok1 && !ok2:
		if l.clock.Now().Before(d.DeadlineTime) {
			return nil, false
		}
		return nil, true
	case ok1 && !ok2:
		return int64Ptr(d.User1ID), true
	case ok2 && !ok1:
		return int64Ptr(d.User2ID), true
	}

	switch {
	case first1.SubmitTime.Before(first2.SubmitTime):
		return int64Ptr(d.User1ID), true
	case first2.SubmitTime.Before(first1.SubmitTime):
		return int64Ptr(d.User2ID), true
	default:
		// identical submit times
		return nil, true
	}
}

// Finish moves the duel to Finished and applies the rating outcome in the same step.
// A second call fails with ErrAlreadyFinished and leaves ratings untouched.
func (l *Lifecycle) Finish(d *Duel, winnerID *int64) (RatingUpdate, error) {
	if d.Status == StatusFinished {
		return RatingUpdate{}, ErrAlreadyFinished
	}
	if d.Status != StatusInProgress {
		return RatingUpdate{}, ErrNotInProgress
	}
	if winnerID != nil && !d.IsParticipant(*winnerID) {
		return RatingUpdate{}, ErrInvalidWinner
	}

	end := l.clock.Now()
	d.Status = StatusFinished
	d.EndTime = &end
	d.WinnerID = nil
	if winnerID != nil {
		d.WinnerID = int64Ptr(*winnerID)
	}

	update := l.UpdateRatings(d)

	l.logger.Debug().
		Int64("duel_id", d.ID).
		Interface("winner_id", d.WinnerID).
		Int("user1_delta", update.User1Delta).
		Int("user2_delta", update.User2Delta).
		Msg("duel finished")

	return update, nil
}

// UpdateRatings fills the final ratings from the duel outcome.
func (l *Lifecycle) UpdateRatings(d *Duel) RatingUpdate {
	settlement := l.ratings.Settle(
		d.User1InitRating,
		d.User2InitRating,
		outcomeFor(d, d.User1ID),
		d.Configuration.IsRated,
	)

	d.User1FinalRating = intPtr(settlement.User1Final)
	d.User2FinalRating = intPtr(settlement.User2Final)

	return RatingUpdate{
		User1Delta: settlement.User1Delta,
		User2Delta: settlement.User2Delta,
		User1Final: settlement.User1Final,
		User2Final: settlement.User2Final,
	}
}

// RatingChanges previews userID's delta for every outcome of the duel.
func (l *Lifecycle) RatingChanges(d *Duel, userID int64) rating.Changes {
	if !d.Configuration.IsRated {
		return rating.Changes{}
	}
	self, opponent := d.InitRatings(userID)
	return l.ratings.GetRatingChanges(self, opponent)
}

func outcomeFor(d *Duel, userID int64) rating.Outcome {
	switch d.ResultFor(userID) {
	case ResultWin:
		return rating.Win
	case ResultDraw:
		return rating.Draw
	default:
		return rating.Lose
	}
}

func earliestAccepted(duelID, userID int64, submissions []Submission) (Submission, bool) {
	var (
		best  Submission
		found bool
	)
	for _, s := range submissions {
		if s.DuelID != duelID || s.UserID != userID || !s.IsAccepted() {
			continue
		}
		if !found || s.SubmitTime.Before(best.SubmitTime) {
			best, found = s, true
		}
	}
	return best, found
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }
