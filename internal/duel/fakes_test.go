package duel

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubCatalog struct {
	tasks []Task
	err   error
}

func (s *stubCatalog) ListTasks(context.Context) ([]Task, error) {
	return s.tasks, s.err
}

// firstFitSelector fills slots with candidates in order.
type firstFitSelector struct {
	err error
}

func (s *firstFitSelector) ChooseTasks(_, _ Participant, cfg Configuration, candidates []Task) (map[string]Task, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]Task)
	for i, key := range cfg.SlotKeys() {
		if i >= len(candidates) {
			return nil, errors.New("not enough tasks")
		}
		out[key] = candidates[i]
	}
	return out, nil
}

type sentEvent struct {
	UserID int64
	Event  Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, evt Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, sentEvent{UserID: userID, Event: evt})
	return n.err
}

func (n *recordingNotifier) Types(userID int64) []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []EventType
	for _, e := range n.events {
		if e.UserID == userID {
			out = append(out, e.Event.Type)
		}
	}
	return out
}

type recordingRecorder struct {
	mu      sync.Mutex
	ratings map[int64]int
}

func (r *recordingRecorder) RecordRating(_ context.Context, userID int64, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ratings == nil {
		r.ratings = map[int64]int{}
	}
	r.ratings[userID] = rating
	return nil
}

// memoryStore is an in-memory Store with the same finish semantics as Postgres.
type memoryStore struct {
	mu             sync.Mutex
	users          map[int64]User
	configurations map[int64]Configuration
	solved         map[int64][]string
	duels          map[int64]*Duel
	submissions    map[int64][]Submission
	nextID         int64
	finishErr      error
	finishCalls    int
}

func newMemoryStore(users ...User) *memoryStore {
	s := &memoryStore{
		users:          map[int64]User{},
		configurations: map[int64]Configuration{},
		solved:         map[int64][]string{},
		duels:          map[int64]*Duel{},
		submissions:    map[int64][]Submission{},
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryStore) GetUser(_ context.Context, userID int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *memoryStore) GetUserByNickname(_ context.Context, nickname string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Nickname == nickname {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *memoryStore) GetConfiguration(_ context.Context, id int64) (Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configurations[id]
	if !ok {
		return Configuration{}, ErrConfigurationNotFound
	}
	return cfg, nil
}

func (s *memoryStore) GetSolvedTaskIDs(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solved[userID], nil
}

func (s *memoryStore) CreateDuel(_ context.Context, d *Duel) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := cloneDuel(d)
	cp.ID = s.nextID
	s.duels[cp.ID] = cp
	return cp.ID, nil
}

func (s *memoryStore) GetDuel(_ context.Context, id int64) (*Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duels[id]
	if !ok {
		return nil, ErrDuelNotFound
	}
	return cloneDuel(d), nil
}

func (s *memoryStore) GetActiveDuel(_ context.Context, userID int64) (*Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.duels {
		if d.Status == StatusInProgress && d.IsParticipant(userID) {
			return cloneDuel(d), nil
		}
	}
	return nil, ErrDuelNotFound
}

func (s *memoryStore) ListInProgressDuels(_ context.Context, afterID int64, limit int) ([]*Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Duel
	for id := afterID + 1; id <= s.nextID && len(out) < limit; id++ {
		if d, ok := s.duels[id]; ok && d.Status == StatusInProgress {
			out = append(out, cloneDuel(d))
		}
	}
	return out, nil
}

func (s *memoryStore) ListUserDuels(_ context.Context, userID int64) ([]*Duel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Duel
	for _, d := range s.duels {
		if d.Status == StatusFinished && d.IsParticipant(userID) {
			out = append(out, cloneDuel(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *memoryStore) ListSubmissions(_ context.Context, duelID int64) ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions[duelID]...), nil
}

func (s *memoryStore) ListAcceptedSubmissions(_ context.Context, duelID int64) ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Submission
	for _, sub := range s.submissions[duelID] {
		if sub.IsAccepted() {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memoryStore) FinishDuel(_ context.Context, d *Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishCalls++
	if s.finishErr != nil {
		return s.finishErr
	}
	stored, ok := s.duels[d.ID]
	if !ok {
		return ErrDuelNotFound
	}
	if stored.Status == StatusFinished {
		return ErrAlreadyFinished
	}
	s.duels[d.ID] = cloneDuel(d)

	u1, u2 := s.users[d.User1ID], s.users[d.User2ID]
	u1.Rating, u2.Rating = *d.User1FinalRating, *d.User2FinalRating
	s.users[u1.ID], s.users[u2.ID] = u1, u2
	return nil
}

func (s *memoryStore) addSubmission(sub Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.ID = s.nextID
	s.submissions[sub.DuelID] = append(s.submissions[sub.DuelID], sub)
}

func (s *memoryStore) rating(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].Rating
}

func cloneDuel(d *Duel) *Duel {
	cp := *d
	cp.Tasks = make(map[string]Task, len(d.Tasks))
	for k, v := range d.Tasks {
		cp.Tasks[k] = v
	}
	return &cp
}

func testTasks() []Task {
	return []Task{
		{ID: "t1", Level: 1, Topics: []string{"math"}},
		{ID: "t2", Level: 2, Topics: []string{"graphs"}},
		{ID: "t3", Level: 3, Topics: []string{"dp"}},
	}
}

func ratedConfig(minutes int) Configuration {
	return Configuration{
		IsRated:            true,
		MaxDurationMinutes: minutes,
		TasksCount:         1,
		TasksOrder:         TasksOrderSequential,
		Tasks:              map[string]TaskConfiguration{DefaultTaskKey: {Level: 1}},
	}
}
