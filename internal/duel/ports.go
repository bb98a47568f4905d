package duel

import (
	"context"
	"time"
)

// Store persists users, configurations, duels and submissions.
// Lookups of missing records return an error wrapping ErrNotFound.
type Store interface {
	GetUser(ctx context.Context, userID int64) (User, error)
	GetUserByNickname(ctx context.Context, nickname string) (User, error)
	GetConfiguration(ctx context.Context, configurationID int64) (Configuration, error)
	GetSolvedTaskIDs(ctx context.Context, userID int64) ([]string, error)

	CreateDuel(ctx context.Context, d *Duel) (int64, error)
	GetDuel(ctx context.Context, duelID int64) (*Duel, error)
	GetActiveDuel(ctx context.Context, userID int64) (*Duel, error)
	// ListInProgressDuels returns up to limit InProgress duels with id greater
	// than afterID, ordered by id.
	ListInProgressDuels(ctx context.Context, afterID int64, limit int) ([]*Duel, error)
	// ListUserDuels returns the Finished duels of userID, newest start first.
	ListUserDuels(ctx context.Context, userID int64) ([]*Duel, error)
	ListSubmissions(ctx context.Context, duelID int64) ([]Submission, error)
	ListAcceptedSubmissions(ctx context.Context, duelID int64) ([]Submission, error)

	// FinishDuel writes the finished duel and both users' new ratings in one
	// transaction. It returns ErrAlreadyFinished if the duel was finished concurrently.
	FinishDuel(ctx context.Context, d *Duel) error
}

// TaskCatalog lists the tasks a duel may be built from.
type TaskCatalog interface {
	ListTasks(ctx context.Context) ([]Task, error)
}

// TaskSelector assigns a task to every slot of a configuration.
type TaskSelector interface {
	ChooseTasks(p1, p2 Participant, cfg Configuration, candidates []Task) (map[string]Task, error)
}

// Notifier delivers events to users. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, evt Event) error
}

// RatingRecorder mirrors ratings into a ranking (e.g. the leaderboard).
type RatingRecorder interface {
	RecordRating(ctx context.Context, userID int64, rating int) error
}

// Locker serialises work on a single key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// EventType names a user-facing duel event.
type EventType string

const (
	EventDuelStarted        EventType = "duel_started"
	EventDuelFinished       EventType = "duel_finished"
	EventSearchCanceled     EventType = "duel_search_canceled"
	EventInvitation         EventType = "duel_invitation"
	EventInvitationCanceled EventType = "duel_invitation_canceled"
	EventInvitationDenied   EventType = "duel_invitation_denied"
)

// Event is the payload handed to a Notifier.
type Event struct {
	Type             EventType `json:"type"`
	DuelID           *int64    `json:"duel_id,omitempty"`
	OpponentNickname string    `json:"opponent_nickname,omitempty"`
	ConfigurationID  *int64    `json:"configuration_id,omitempty"`
}
