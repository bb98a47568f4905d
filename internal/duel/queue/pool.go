package queue

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyWaiting is returned by AddUser when the user already has an entry.
var ErrAlreadyWaiting = errors.New("user already waiting")

// WaitingEntry is one user's open search or pending invitation.
type WaitingEntry struct {
	UserID             int64
	Rating             int
	EnqueuedAt         time.Time
	ExpectedOpponentID *int64
	ConfigurationID    *int64
	IsOpponentAssigned bool
}

// IsInvitation reports whether the entry targets a specific opponent.
func (e WaitingEntry) IsInvitation() bool {
	return e.ExpectedOpponentID != nil
}

// Pair represents two users removed from the pool to play a duel.
type Pair struct {
	User1           WaitingEntry
	User2           WaitingEntry
	ConfigurationID *int64
}

// EntryOption customises an entry passed to AddUser.
type EntryOption func(*WaitingEntry)

// WithExpectedOpponent turns the entry into an invitation for opponentID.
func WithExpectedOpponent(opponentID int64) EntryOption {
	return func(e *WaitingEntry) {
		e.ExpectedOpponentID = &opponentID
	}
}

// WithConfiguration attaches a duel configuration to the entry.
func WithConfiguration(configurationID int64) EntryOption {
	return func(e *WaitingEntry) {
		e.ConfigurationID = &configurationID
	}
}

// Pool holds users waiting for an opponent. All operations are serialised by a
// single mutex, so TryGetPair selects and removes a pair in one critical section.
type Pool struct {
	mu      sync.Mutex
	waiting map[int64]*WaitingEntry
	logger  zerolog.Logger
}

// NewPool creates an empty waiting pool.
func NewPool(logger zerolog.Logger) *Pool {
	return &Pool{
		waiting: make(map[int64]*WaitingEntry),
		logger:  logger.With().Str("component", "waiting_pool").Logger(),
	}
}

// AddUser registers a search (or an invitation when WithExpectedOpponent is given).
// A second entry for the same user is refused with ErrAlreadyWaiting.
func (p *Pool) AddUser(userID int64, rating int, enqueuedAt time.Time, opts ...EntryOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.waiting[userID]; exists {
		return ErrAlreadyWaiting
	}

	entry := &WaitingEntry{
		UserID:     userID,
		Rating:     rating,
		EnqueuedAt: enqueuedAt,
	}
	for _, opt := range opts {
		opt(entry)
	}
	p.waiting[userID] = entry

	if entry.ExpectedOpponentID != nil {
		if opponent, ok := p.waiting[*entry.ExpectedOpponentID]; ok &&
			opponent.ExpectedOpponentID != nil && *opponent.ExpectedOpponentID == userID {
			entry.IsOpponentAssigned = true
			opponent.IsOpponentAssigned = true
		}
	}

	p.logger.Debug().
		Int64("user_id", userID).
		Int("rating", rating).
		Bool("invitation", entry.ExpectedOpponentID != nil).
		Bool("opponent_assigned", entry.IsOpponentAssigned).
		Msg("user added to pool")

	return nil
}

// RemoveUser drops the user's entry. Removing an absent user is a no-op.
func (p *Pool) RemoveUser(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removeLocked(userID)
}

// TryRemoveInvitation removes inviterID only if it is an invitation for expectedOpponentID.
func (p *Pool) TryRemoveInvitation(inviterID, expectedOpponentID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.waiting[inviterID]
	if !ok || entry.ExpectedOpponentID == nil || *entry.ExpectedOpponentID != expectedOpponentID {
		return false
	}
	p.removeLocked(inviterID)
	return true
}

// IsUserWaiting reports whether the user has an entry.
func (p *Pool) IsUserWaiting(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.waiting[userID]
	return ok
}

// TryGetWaitingUser returns a copy of the user's entry.
func (p *Pool) TryGetWaitingUser(userID int64) (WaitingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.waiting[userID]
	if !ok {
		return WaitingEntry{}, false
	}
	return copyEntry(entry), true
}

// GetWaitingUsers returns a snapshot ordered by EnqueuedAt, then UserID.
// The snapshot shares no memory with the pool.
func (p *Pool) GetWaitingUsers() []WaitingEntry {
	p.mu.Lock()
	snapshot := make([]WaitingEntry, 0, len(p.waiting))
	for _, entry := range p.waiting {
		snapshot = append(snapshot, copyEntry(entry))
	}
	p.mu.Unlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].EnqueuedAt.Equal(snapshot[j].EnqueuedAt) {
			return snapshot[i].EnqueuedAt.Before(snapshot[j].EnqueuedAt)
		}
		return snapshot[i].UserID < snapshot[j].UserID
	})
	return snapshot
}

// Count returns the number of waiting users.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.waiting)
}

// TryGetPair selects the best pair currently available and removes both users.
// Mutual invitations take priority over ranked searches.
func (p *Pool) TryGetPair() (Pair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.waiting) < 2 {
		return Pair{}, false
	}

	entries := make([]*WaitingEntry, 0, len(p.waiting))
	for _, entry := range p.waiting {
		entries = append(entries, entry)
	}

	pair, ok := selectInvitedPair(entries, p.waiting)
	if !ok {
		pair, ok = selectRankedPair(entries)
	}
	if !ok {
		return Pair{}, false
	}

	delete(p.waiting, pair.User1.UserID)
	delete(p.waiting, pair.User2.UserID)

	p.logger.Info().
		Int64("user1_id", pair.User1.UserID).
		Int64("user2_id", pair.User2.UserID).
		Int("rating_diff", abs(pair.User1.Rating-pair.User2.Rating)).
		Msg("pair selected")

	return pair, true
}

func (p *Pool) removeLocked(userID int64) {
	entry, ok := p.waiting[userID]
	if !ok {
		return
	}

	if entry.IsOpponentAssigned && entry.ExpectedOpponentID != nil {
		if opponent, ok := p.waiting[*entry.ExpectedOpponentID]; ok &&
			opponent.ExpectedOpponentID != nil && *opponent.ExpectedOpponentID == userID {
			opponent.IsOpponentAssigned = false
		}
	}

	delete(p.waiting, userID)
	p.logger.Debug().Int64("user_id", userID).Msg("user removed from pool")
}

func copyEntry(e *WaitingEntry) WaitingEntry {
	out := *e
	if e.ExpectedOpponentID != nil {
		id := *e.ExpectedOpponentID
		out.ExpectedOpponentID = &id
	}
	if e.ConfigurationID != nil {
		id := *e.ConfigurationID
		out.ConfigurationID = &id
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
