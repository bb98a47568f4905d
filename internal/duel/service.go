package duel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/duel-platform/internal/duel/queue"
	"github.com/gokatarajesh/duel-platform/internal/duel/rating"
	"github.com/gokatarajesh/duel-platform/internal/metrics"
)

// ServiceOptions configures the duel service.
type ServiceOptions struct {
	DefaultMaxDurationMinutes int // default: 30
	Notifier                  Notifier
	Recorder                  RatingRecorder
	Locker                    Locker
	Metrics                   *metrics.Collector
	Clock                     Clock
}

// Service orchestrates searches, invitations and the duel lifecycle.
type Service struct {
	store     Store
	pool      *queue.Pool
	lifecycle *Lifecycle
	notifier  Notifier
	recorder  RatingRecorder
	locker    Locker
	metrics   *metrics.Collector
	clock     Clock
	opts      ServiceOptions
	logger    zerolog.Logger
}

// NewService creates a duel service with all dependencies.
func NewService(store Store, pool *queue.Pool, lifecycle *Lifecycle, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultMaxDurationMinutes <= 0 {
		opts.DefaultMaxDurationMinutes = 30
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	if opts.Clock == nil {
		opts.Clock = lifecycle.clock
	}

	return &Service{
		store:     store,
		pool:      pool,
		lifecycle: lifecycle,
		notifier:  opts.Notifier,
		recorder:  opts.Recorder,
		locker:    opts.Locker,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		opts:      opts,
		logger:    logger.With().Str("component", "duel_service").Logger(),
	}
}

// StartSearch puts the user into ranked search. An outgoing invitation that the
// opponent has not accepted is cancelled first. Searching twice is a no-op.
func (s *Service) StartSearch(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.ensureNoActiveDuel(ctx, user.ID); err != nil {
		return err
	}

	if entry, ok := s.pool.TryGetWaitingUser(user.ID); ok {
		if !entry.IsInvitation() || entry.IsOpponentAssigned {
			return nil
		}
		if s.pool.TryRemoveInvitation(user.ID, *entry.ExpectedOpponentID) {
			s.notify(ctx, *entry.ExpectedOpponentID, Event{
				Type:             EventInvitationCanceled,
				OpponentNickname: user.Nickname,
				ConfigurationID:  entry.ConfigurationID,
			})
		}
	}

	if err := s.pool.AddUser(user.ID, user.Rating, s.clock.Now()); err != nil {
		if entry, ok := s.pool.TryGetWaitingUser(user.ID); ok && !entry.IsInvitation() {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	s.metrics.SetWaitingUsers(s.pool.Count())

	s.logger.Info().Int64("user_id", user.ID).Int("rating", user.Rating).Msg("search started")
	return nil
}

// CancelSearch removes the user's ranked search, if any.
func (s *Service) CancelSearch(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	entry, ok := s.pool.TryGetWaitingUser(user.ID)
	if !ok || entry.IsInvitation() {
		return nil
	}

	s.pool.RemoveUser(user.ID)
	s.metrics.SetWaitingUsers(s.pool.Count())
	s.notify(ctx, user.ID, Event{Type: EventSearchCanceled})

	s.logger.Info().Int64("user_id", user.ID).Msg("search canceled")
	return nil
}

// CreateInvitation invites opponentNickname to a friendly duel. Any previous
// search or invitation of the caller is replaced.
func (s *Service) CreateInvitation(ctx context.Context, userID int64, opponentNickname string, configurationID *int64) error {
	user, opponent, err := s.loadCounterpart(ctx, userID, opponentNickname)
	if err != nil {
		return err
	}
	if configurationID != nil {
		if _, err := s.store.GetConfiguration(ctx, *configurationID); err != nil {
			return err
		}
	}
	if err := s.ensureNoActiveDuel(ctx, user.ID); err != nil {
		return err
	}

	if entry, ok := s.pool.TryGetWaitingUser(opponent.ID); ok &&
		entry.ExpectedOpponentID != nil && *entry.ExpectedOpponentID == user.ID {
		return ErrInvitationExists
	}

	s.withdraw(ctx, user)

	opts := []queue.EntryOption{queue.WithExpectedOpponent(opponent.ID)}
	if configurationID != nil {
		opts = append(opts, queue.WithConfiguration(*configurationID))
	}
	if err := s.pool.AddUser(user.ID, user.Rating, s.clock.Now(), opts...); err != nil {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	s.metrics.SetWaitingUsers(s.pool.Count())

	s.notify(ctx, opponent.ID, Event{
		Type:             EventInvitation,
		OpponentNickname: user.Nickname,
		ConfigurationID:  configurationID,
	})

	s.logger.Info().Int64("user_id", user.ID).Int64("opponent_id", opponent.ID).Msg("invitation created")
	return nil
}

// AcceptInvitation answers inviterNickname's invitation. When configurationID is
// set it must match the invitation's configuration.
func (s *Service) AcceptInvitation(ctx context.Context, userID int64, inviterNickname string, configurationID *int64) error {
	user, inviter, err := s.loadCounterpart(ctx, userID, inviterNickname)
	if err != nil {
		return err
	}

	invitation, ok := s.findInvitation(inviter.ID, user.ID, configurationID)
	if !ok {
		return ErrInvitationNotFound
	}
	if err := s.ensureNoActiveDuel(ctx, user.ID); err != nil {
		return err
	}

	if entry, ok := s.pool.TryGetWaitingUser(user.ID); ok {
		if entry.ExpectedOpponentID != nil && *entry.ExpectedOpponentID == inviter.ID {
			return nil
		}
		s.withdraw(ctx, user)
	}

	opts := []queue.EntryOption{queue.WithExpectedOpponent(inviter.ID)}
	if invitation.ConfigurationID != nil {
		opts = append(opts, queue.WithConfiguration(*invitation.ConfigurationID))
	}
	if err := s.pool.AddUser(user.ID, user.Rating, s.clock.Now(), opts...); err != nil {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	s.metrics.SetWaitingUsers(s.pool.Count())

	s.logger.Info().Int64("user_id", user.ID).Int64("inviter_id", inviter.ID).Msg("invitation accepted")
	return nil
}

// DenyInvitation rejects inviterNickname's invitation and tells the inviter.
func (s *Service) DenyInvitation(ctx context.Context, userID int64, inviterNickname string, configurationID *int64) error {
	user, inviter, err := s.loadCounterpart(ctx, userID, inviterNickname)
	if err != nil {
		return err
	}

	invitation, ok := s.findInvitation(inviter.ID, user.ID, configurationID)
	if !ok || !s.pool.TryRemoveInvitation(inviter.ID, user.ID) {
		return ErrInvitationNotFound
	}
	s.metrics.SetWaitingUsers(s.pool.Count())

	s.notify(ctx, inviter.ID, Event{
		Type:             EventInvitationDenied,
		OpponentNickname: user.Nickname,
		ConfigurationID:  invitation.ConfigurationID,
	})
	return nil
}

// CancelInvitation withdraws the caller's invitation to opponentNickname.
// Cancelling a missing invitation is a no-op.
func (s *Service) CancelInvitation(ctx context.Context, userID int64, opponentNickname string, configurationID *int64) error {
	user, opponent, err := s.loadCounterpart(ctx, userID, opponentNickname)
	if err != nil {
		return err
	}

	invitation, ok := s.findInvitation(user.ID, opponent.ID, configurationID)
	if !ok || !s.pool.TryRemoveInvitation(user.ID, opponent.ID) {
		return nil
	}
	s.metrics.SetWaitingUsers(s.pool.Count())

	s.notify(ctx, opponent.ID, Event{
		Type:             EventInvitationCanceled,
		OpponentNickname: user.Nickname,
		ConfigurationID:  invitation.ConfigurationID,
	})
	s.notify(ctx, user.ID, Event{
		Type:             EventInvitationCanceled,
		OpponentNickname: opponent.Nickname,
		ConfigurationID:  invitation.ConfigurationID,
	})
	return nil
}

// IncomingInvitations lists invitations addressed to userID, oldest first.
func (s *Service) IncomingInvitations(ctx context.Context, userID int64) ([]PendingDuel, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	var result []PendingDuel
	for _, entry := range s.pool.GetWaitingUsers() {
		if entry.ExpectedOpponentID != nil && *entry.ExpectedOpponentID == userID && !entry.IsOpponentAssigned {
			result = append(result, pendingFromEntry(entry))
		}
	}
	return result, nil
}

// PendingDuels lists every search and invitation in the pool, oldest first.
func (s *Service) PendingDuels() []PendingDuel {
	entries := s.pool.GetWaitingUsers()
	result := make([]PendingDuel, 0, len(entries))
	for _, entry := range entries {
		result = append(result, pendingFromEntry(entry))
	}
	return result
}

// CreateDuel turns a matched pair into a persisted InProgress duel.
func (s *Service) CreateDuel(ctx context.Context, pair queue.Pair) (*Duel, error) {
	u1, err := s.store.GetUser(ctx, pair.User1.UserID)
	if err != nil {
		return nil, err
	}
	u2, err := s.store.GetUser(ctx, pair.User2.UserID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configurationFor(ctx, pair, u1, u2)
	if err != nil {
		s.metrics.StartFailed("configuration")
		return nil, err
	}

	p1, err := s.participant(ctx, u1)
	if err != nil {
		return nil, err
	}
	p2, err := s.participant(ctx, u2)
	if err != nil {
		return nil, err
	}

	d, err := s.lifecycle.Start(ctx, p1, p2, cfg)
	if err != nil {
		s.metrics.StartFailed("task_selection")
		return nil, err
	}

	id, err := s.store.CreateDuel(ctx, d)
	if err != nil {
		s.metrics.StartFailed("persistence")
		return nil, fmt.Errorf("create duel: %w", err)
	}
	d.ID = id

	s.metrics.DuelStarted()
	s.metrics.PairMatched(pairKind(pair))

	evt := Event{Type: EventDuelStarted, DuelID: int64Ptr(d.ID)}
	s.notify(ctx, d.User1ID, evt)
	s.notify(ctx, d.User2ID, evt)

	s.logger.Info().
		Int64("duel_id", d.ID).
		Int64("user1_id", d.User1ID).
		Int64("user2_id", d.User2ID).
		Time("deadline", d.DeadlineTime).
		Msg("duel started")

	return d, nil
}

// GetDuel returns the duel as seen by a participant.
func (s *Service) GetDuel(ctx context.Context, userID, duelID int64) (*DuelView, error) {
	d, err := s.store.GetDuel(ctx, duelID)
	if err != nil {
		return nil, err
	}
	if !d.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return s.view(ctx, d, userID)
}

// GetActiveDuel returns the user's InProgress duel.
func (s *Service) GetActiveDuel(ctx context.Context, userID int64) (*DuelView, error) {
	d, err := s.store.GetActiveDuel(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d, userID)
}

// FinishDuel lets a participant close a duel as soon as a finish condition
// holds, without waiting for the FinishWatcher. The outcome is always derived
// from accepted submissions and the deadline; ErrNotFinishable is returned
// while neither decides the duel.
func (s *Service) FinishDuel(ctx context.Context, callerID, duelID int64) (*Duel, error) {
	var finished *Duel
	err := s.withDuelLock(ctx, duelID, func() error {
		d, err := s.store.GetDuel(ctx, duelID)
		if err != nil {
			return err
		}
		if !d.IsParticipant(callerID) {
			return ErrNotParticipant
		}
		if d.Status == StatusFinished {
			return ErrAlreadyFinished
		}

		done, err := s.evaluate(ctx, d)
		if err != nil {
			return err
		}
		if !done {
			return ErrNotFinishable
		}
		finished = d
		return nil
	})
	return finished, err
}

// CheckDuel evaluates one duel against its accepted submissions and finishes
// it when a finish condition holds. Evaluation of the same duel is serialised.
func (s *Service) CheckDuel(ctx context.Context, duelID int64) error {
	return s.withDuelLock(ctx, duelID, func() error {
		d, err := s.store.GetDuel(ctx, duelID)
		if err != nil {
			return err
		}
		if d.Status != StatusInProgress {
			return nil
		}
		_, err = s.evaluate(ctx, d)
		return err
	})
}

// evaluate finishes d when a finish condition holds and reports whether it did.
// The caller holds the duel lock.
func (s *Service) evaluate(ctx context.Context, d *Duel) (bool, error) {
	accepted, err := s.store.ListAcceptedSubmissions(ctx, d.ID)
	if err != nil {
		return false, fmt.Errorf("list accepted submissions: %w", err)
	}

	winnerID, done := s.lifecycle.EvaluateFinish(d, accepted)
	if !done {
		return false, nil
	}
	return true, s.finish(ctx, d, winnerID)
}

// Requeue returns a pair member to the pool after its duel failed to start,
// keeping the original enqueue time and invitation. A user who meanwhile got
// an active duel is told the search ended; an unknown user is dropped.
func (s *Service) Requeue(ctx context.Context, entry queue.WaitingEntry) error {
	_, err := s.store.GetUser(ctx, entry.UserID)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		if err := s.ensureNoActiveDuel(ctx, entry.UserID); errors.Is(err, ErrActiveDuel) {
			s.notify(ctx, entry.UserID, Event{Type: EventSearchCanceled})
			return err
		}
	}

	var opts []queue.EntryOption
	if entry.ExpectedOpponentID != nil {
		opts = append(opts, queue.WithExpectedOpponent(*entry.ExpectedOpponentID))
	}
	if entry.ConfigurationID != nil {
		opts = append(opts, queue.WithConfiguration(*entry.ConfigurationID))
	}
	if err := s.pool.AddUser(entry.UserID, entry.Rating, entry.EnqueuedAt, opts...); err != nil &&
		!errors.Is(err, queue.ErrAlreadyWaiting) {
		return err
	}
	return nil
}

// DuelHistory returns the finished duels of userID as that user sees them,
// newest first.
func (s *Service) DuelHistory(ctx context.Context, userID int64) ([]DuelView, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	duels, err := s.store.ListUserDuels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list duels of user %d: %w", userID, err)
	}

	history := make([]DuelView, 0, len(duels))
	for _, d := range duels {
		v, err := s.view(ctx, d, userID)
		if err != nil {
			return nil, err
		}
		history = append(history, *v)
	}
	return history, nil
}

// DuelSummary is one line of a user's public duel list.
type DuelSummary struct {
	ID               int64      `json:"id"`
	Status           Status     `json:"status"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	OpponentNickname string     `json:"opponent_nickname"`
	WinnerNickname   *string    `json:"winner_nickname,omitempty"`
	RatingDelta      int        `json:"rating_delta"`
}

// UserDuels summarises the finished duels of userID, newest first.
func (s *Service) UserDuels(ctx context.Context, userID int64) ([]DuelSummary, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	duels, err := s.store.ListUserDuels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list duels of user %d: %w", userID, err)
	}

	nicknames := map[int64]string{user.ID: user.Nickname}
	nickname := func(id int64) (string, error) {
		if n, ok := nicknames[id]; ok {
			return n, nil
		}
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			return "", err
		}
		nicknames[id] = u.Nickname
		return u.Nickname, nil
	}

	summaries := make([]DuelSummary, 0, len(duels))
	for _, d := range duels {
		opponent, err := nickname(d.OpponentOf(userID))
		if err != nil {
			return nil, err
		}
		item := DuelSummary{
			ID:               d.ID,
			Status:           d.Status,
			StartTime:        d.StartTime,
			EndTime:          d.EndTime,
			OpponentNickname: opponent,
			RatingDelta:      d.RatingDelta(userID),
		}
		if d.WinnerID != nil {
			winner, err := nickname(*d.WinnerID)
			if err != nil {
				return nil, err
			}
			item.WinnerNickname = &winner
		}
		summaries = append(summaries, item)
	}
	return summaries, nil
}

func (s *Service) finish(ctx context.Context, d *Duel, winnerID *int64) error {
	update, err := s.lifecycle.Finish(d, winnerID)
	if err != nil {
		return err
	}

	if err := s.store.FinishDuel(ctx, d); err != nil {
		return fmt.Errorf("persist finished duel %d: %w", d.ID, err)
	}

	result := string(ResultDraw)
	if d.WinnerID != nil {
		result = "decisive"
	}
	s.metrics.DuelFinished(result)

	if s.recorder != nil && d.Configuration.IsRated {
		for userID, final := range map[int64]int{d.User1ID: update.User1Final, d.User2ID: update.User2Final} {
			if err := s.recorder.RecordRating(ctx, userID, final); err != nil {
				s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to record rating")
			}
		}
	}

	evt := Event{Type: EventDuelFinished, DuelID: int64Ptr(d.ID)}
	s.notify(ctx, d.User1ID, evt)
	s.notify(ctx, d.User2ID, evt)

	s.logger.Info().
		Int64("duel_id", d.ID).
		Interface("winner_id", d.WinnerID).
		Int("user1_rating", update.User1Final).
		Int("user2_rating", update.User2Final).
		Msg("duel finished")

	return nil
}

func (s *Service) withDuelLock(ctx context.Context, duelID int64, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, duelLockKey(duelID))
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn().Err(err).Int64("duel_id", duelID).Msg("failed to release duel lock")
		}
	}()
	return fn()
}

func (s *Service) configurationFor(ctx context.Context, pair queue.Pair, u1, u2 User) (Configuration, error) {
	if pair.ConfigurationID != nil {
		return s.store.GetConfiguration(ctx, *pair.ConfigurationID)
	}

	return Configuration{
		IsRated:                    !pair.User1.IsInvitation(),
		ShouldShowOpponentSolution: true,
		MaxDurationMinutes:         s.opts.DefaultMaxDurationMinutes,
		TasksCount:                 1,
		TasksOrder:                 TasksOrderSequential,
		Tasks: map[string]TaskConfiguration{
			DefaultTaskKey: {
				Level:  s.lifecycle.ratings.TaskLevel((u1.Rating + u2.Rating) / 2),
				Topics: []string{},
			},
		},
	}, nil
}

func (s *Service) participant(ctx context.Context, u User) (Participant, error) {
	solved, err := s.store.GetSolvedTaskIDs(ctx, u.ID)
	if err != nil {
		return Participant{}, fmt.Errorf("solved tasks of user %d: %w", u.ID, err)
	}
	return Participant{UserID: u.ID, Rating: u.Rating, SolvedTaskIDs: solved}, nil
}

func (s *Service) ensureNoActiveDuel(ctx context.Context, userID int64) error {
	_, err := s.store.GetActiveDuel(ctx, userID)
	switch {
	case err == nil:
		return ErrActiveDuel
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("active duel lookup: %w", err)
	}
}

// loadCounterpart resolves the caller and the other side of an invitation.
func (s *Service) loadCounterpart(ctx context.Context, userID int64, nickname string) (User, User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return User{}, User{}, err
	}
	other, err := s.store.GetUserByNickname(ctx, nickname)
	if err != nil {
		return User{}, User{}, err
	}
	if other.ID == user.ID {
		return User{}, User{}, ErrSelfInvitation
	}
	return user, other, nil
}

func (s *Service) findInvitation(inviterID, opponentID int64, configurationID *int64) (queue.WaitingEntry, bool) {
	entry, ok := s.pool.TryGetWaitingUser(inviterID)
	if !ok || entry.ExpectedOpponentID == nil || *entry.ExpectedOpponentID != opponentID {
		return queue.WaitingEntry{}, false
	}
	if configurationID != nil && (entry.ConfigurationID == nil || *entry.ConfigurationID != *configurationID) {
		return queue.WaitingEntry{}, false
	}
	return entry, true
}

// withdraw removes the user's current entry, telling an invited opponent.
func (s *Service) withdraw(ctx context.Context, user User) {
	entry, ok := s.pool.TryGetWaitingUser(user.ID)
	if !ok {
		return
	}
	s.pool.RemoveUser(user.ID)
	if entry.IsInvitation() {
		s.notify(ctx, *entry.ExpectedOpponentID, Event{
			Type:             EventInvitationCanceled,
			OpponentNickname: user.Nickname,
			ConfigurationID:  entry.ConfigurationID,
		})
	}
}

func (s *Service) notify(ctx context.Context, userID int64, evt Event) {
	if err := s.notifier.Notify(ctx, userID, evt); err != nil {
		s.logger.Warn().Err(err).
			Int64("user_id", userID).
			Str("event", string(evt.Type)).
			Msg("notification failed")
	}
}

func pendingFromEntry(entry queue.WaitingEntry) PendingDuel {
	kind := PendingRanked
	if entry.IsInvitation() {
		kind = PendingFriendly
	}
	return PendingDuel{
		Kind:            kind,
		UserID:          entry.UserID,
		OpponentID:      entry.ExpectedOpponentID,
		ConfigurationID: entry.ConfigurationID,
		Rating:          entry.Rating,
		CreatedAt:       entry.EnqueuedAt,
		Accepted:        entry.IsOpponentAssigned,
	}
}

func pairKind(pair queue.Pair) string {
	if pair.User1.IsInvitation() {
		return string(PendingFriendly)
	}
	return string(PendingRanked)
}

func duelLockKey(duelID int64) string {
	return "duel:lock:" + strconv.FormatInt(duelID, 10)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, int64, Event) error { return nil }

// DuelView is a duel as presented to one participant.
type DuelView struct {
	ID                int64             `json:"id"`
	OpponentID        int64             `json:"opponent_id"`
	Status            Status            `json:"status"`
	Configuration     Configuration     `json:"configuration"`
	StartTime         time.Time         `json:"start_time"`
	DeadlineTime      time.Time         `json:"deadline_time"`
	EndTime           *time.Time        `json:"end_time,omitempty"`
	Result            *Result           `json:"result,omitempty"`
	WinnerID          *int64            `json:"winner_id,omitempty"`
	Rating            int               `json:"rating"`
	OpponentRating    int               `json:"opponent_rating"`
	RatingChanges     rating.Changes    `json:"rating_changes"`
	Tasks             map[string]Task   `json:"tasks"`
	Solutions         map[string]string `json:"solutions"`
	OpponentSolutions map[string]string `json:"opponent_solutions,omitempty"`
}

func (s *Service) view(ctx context.Context, d *Duel, userID int64) (*DuelView, error) {
	submissions, err := s.store.ListSubmissions(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	self, opponent := d.InitRatings(userID)
	opponentID := d.OpponentOf(userID)
	v := &DuelView{
		ID:             d.ID,
		OpponentID:     opponentID,
		Status:         d.Status,
		Configuration:  d.Configuration,
		StartTime:      d.StartTime,
		DeadlineTime:   d.DeadlineTime,
		EndTime:        d.EndTime,
		WinnerID:       d.WinnerID,
		Rating:         self,
		OpponentRating: opponent,
		RatingChanges:  s.lifecycle.RatingChanges(d, userID),
		Tasks:          VisibleTasks(d, submissions, userID),
		Solutions:      d.Solutions(userID),
	}
	if d.Status == StatusFinished {
		result := d.ResultFor(userID)
		v.Result = &result
	}
	if d.Configuration.ShouldShowOpponentSolution {
		v.OpponentSolutions = d.Solutions(opponentID)
	}
	return v, nil
}
