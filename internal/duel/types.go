package duel

import (
	"sort"
	"time"
)

// Status lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// TasksOrder controls how task slots are revealed.
type TasksOrder string

const (
	TasksOrderSequential TasksOrder = "sequential"
	TasksOrderParallel   TasksOrder = "parallel"
)

// DefaultTaskKey is the single slot of a generated configuration.
const DefaultTaskKey = "A"

// TaskConfiguration describes what a task slot asks for.
type TaskConfiguration struct {
	Level  int      `json:"level"`
	Topics []string `json:"topics"`
}

// Configuration is a duel ruleset. ID is nil for generated defaults.
type Configuration struct {
	ID                         *int64                       `json:"id,omitempty"`
	OwnerID                    *int64                       `json:"owner_id,omitempty"`
	IsRated                    bool                         `json:"is_rated"`
	ShouldShowOpponentSolution bool                         `json:"should_show_opponent_solution"`
	MaxDurationMinutes         int                          `json:"max_duration_minutes"`
	TasksCount                 int                          `json:"tasks_count"`
	TasksOrder                 TasksOrder                   `json:"tasks_order"`
	Tasks                      map[string]TaskConfiguration `json:"tasks"`
}

// Duration returns the time allowed for a duel.
func (c Configuration) Duration() time.Duration {
	return time.Duration(c.MaxDurationMinutes) * time.Minute
}

// SlotKeys returns the task slot keys in ascending order.
func (c Configuration) SlotKeys() []string {
	return sortedKeys(c.Tasks)
}

// Task is a problem reference from the task catalog.
type Task struct {
	ID     string   `json:"id"`
	Level  int      `json:"level"`
	Topics []string `json:"topics"`
}

// SubmissionStatus is the judging state of a submission.
type SubmissionStatus string

const (
	SubmissionQueued  SubmissionStatus = "queued"
	SubmissionRunning SubmissionStatus = "running"
	SubmissionDone    SubmissionStatus = "done"
)

// VerdictAccepted marks a correct solution.
const VerdictAccepted = "Accepted"

// Submission is one solution attempt within a duel.
type Submission struct {
	ID         int64            `json:"id"`
	DuelID     int64            `json:"duel_id"`
	UserID     int64            `json:"user_id"`
	TaskKey    string           `json:"task_key"`
	SubmitTime time.Time        `json:"submit_time"`
	Status     SubmissionStatus `json:"status"`
	Verdict    string           `json:"verdict,omitempty"`
}

// IsAccepted reports whether the submission was judged and accepted.
func (s Submission) IsAccepted() bool {
	return s.Status == SubmissionDone && s.Verdict == VerdictAccepted
}

// Duel is one match between two users.
type Duel struct {
	ID               int64
	User1ID          int64
	User2ID          int64
	Status           Status
	Configuration    Configuration
	Tasks            map[string]Task
	StartTime        time.Time
	DeadlineTime     time.Time
	EndTime          *time.Time
	User1InitRating  int
	User2InitRating  int
	User1FinalRating *int
	User2FinalRating *int
	WinnerID         *int64
	User1Solutions   map[string]string
	User2Solutions   map[string]string
}

// IsParticipant reports whether userID plays in the duel.
func (d *Duel) IsParticipant(userID int64) bool {
	return d.User1ID == userID || d.User2ID == userID
}

// OpponentOf returns the other participant's id.
func (d *Duel) OpponentOf(userID int64) int64 {
	if d.User1ID == userID {
		return d.User2ID
	}
	return d.User1ID
}

// InitRatings returns the frozen ratings as (self, opponent) for userID.
func (d *Duel) InitRatings(userID int64) (int, int) {
	if d.User1ID == userID {
		return d.User1InitRating, d.User2InitRating
	}
	return d.User2InitRating, d.User1InitRating
}

// Solutions returns the solutions submitted by userID, keyed by slot.
func (d *Duel) Solutions(userID int64) map[string]string {
	if d.User1ID == userID {
		return d.User1Solutions
	}
	return d.User2Solutions
}

// RatingDelta returns the rating change userID received from the duel, zero
// while no final rating is recorded.
func (d *Duel) RatingDelta(userID int64) int {
	final, init := d.User2FinalRating, d.User2InitRating
	if d.User1ID == userID {
		final, init = d.User1FinalRating, d.User1InitRating
	}
	if final == nil {
		return 0
	}
	return *final - init
}

// User is the persistence view of a player.
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Rating   int    `json:"rating"`
}

// Participant is a user as seen by the lifecycle when a duel starts.
type Participant struct {
	UserID        int64
	Rating        int
	SolvedTaskIDs []string
}

// PendingKind discriminates pending duels.
type PendingKind string

const (
	PendingRanked   PendingKind = "ranked"
	PendingFriendly PendingKind = "friendly"
)

// PendingDuel is a search or invitation that has not become a duel yet.
// OpponentID is set only for the friendly kind.
type PendingDuel struct {
	Kind            PendingKind `json:"kind"`
	UserID          int64       `json:"user_id"`
	OpponentID      *int64      `json:"opponent_id,omitempty"`
	ConfigurationID *int64      `json:"configuration_id,omitempty"`
	Rating          int         `json:"rating"`
	CreatedAt       time.Time   `json:"created_at"`
	Accepted        bool        `json:"accepted"`
}

// RatingUpdate records the ratings applied when a duel finished.
type RatingUpdate struct {
	User1Delta int
	User2Delta int
	User1Final int
	User2Final int
}

// Result is a finished duel's outcome from one participant's view.
type Result string

const (
	ResultWin  Result = "win"
	ResultDraw Result = "draw"
	ResultLose Result = "lose"
)

// ResultFor returns userID's result of a finished duel.
func (d *Duel) ResultFor(userID int64) Result {
	switch {
	case d.WinnerID == nil:
		return ResultDraw
	case *d.WinnerID == userID:
		return ResultWin
	default:
		return ResultLose
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
