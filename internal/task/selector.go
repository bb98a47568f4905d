package task

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gokatarajesh/duel-platform/internal/duel"
)

var (
	ErrNoTasks = errors.New("no candidate tasks")
	ErrNoSlots = errors.New("configuration has no task slots")
)

// Selector fills configuration slots from the candidate list.
//
// Tasks either participant already solved are excluded unless that leaves
// fewer tasks than slots. Slots are filled in ascending key order; for each slot the task
// with the most matching topics wins, then the closest level, then a random
// pick. A task is used at most once per duel.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

var _ duel.TaskSelector = (*Selector)(nil)

// NewSelector creates a selector. A nil rnd seeds from the clock.
func NewSelector(rnd *rand.Rand) *Selector {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rnd: rnd}
}

func (s *Selector) ChooseTasks(p1, p2 duel.Participant, cfg duel.Configuration, candidates []duel.Task) (map[string]duel.Task, error) {
	if len(candidates) == 0 {
		return nil, ErrNoTasks
	}
	if len(cfg.Tasks) == 0 {
		return nil, ErrNoSlots
	}

	available := excludeSolved(candidates, p1.SolvedTaskIDs, p2.SolvedTaskIDs)
	if len(available) < len(cfg.Tasks) {
		available = append([]duel.Task(nil), candidates...)
	}

	chosen := make(map[string]duel.Task, len(cfg.Tasks))
	for _, key := range cfg.SlotKeys() {
		if len(available) == 0 {
			return nil, fmt.Errorf("slot %s: %w", key, ErrNoTasks)
		}
		idx := s.best(available, cfg.Tasks[key])
		chosen[key] = available[idx]
		available = append(available[:idx], available[idx+1:]...)
	}
	return chosen, nil
}

// best returns the index of the best task for slot.
func (s *Selector) best(tasks []duel.Task, slot duel.TaskConfiguration) int {
	var (
		ties         []int
		bestMatches  = -1
		bestLevelGap int
	)
	for i, t := range tasks {
		matches := topicMatches(t.Topics, slot.Topics)
		gap := t.Level - slot.Level
		if gap < 0 {
			gap = -gap
		}

		switch {
		case matches > bestMatches, matches == bestMatches && gap < bestLevelGap:
			ties = append(ties[:0], i)
			bestMatches, bestLevelGap = matches, gap
		case matches == bestMatches && gap == bestLevelGap:
			ties = append(ties, i)
		}
	}

	if len(ties) == 1 {
		return ties[0]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return ties[s.rnd.Intn(len(ties))]
}

func excludeSolved(tasks []duel.Task, solved ...[]string) []duel.Task {
	skip := make(map[string]struct{})
	for _, ids := range solved {
		for _, id := range ids {
			skip[id] = struct{}{}
		}
	}

	out := make([]duel.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := skip[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func topicMatches(taskTopics, wanted []string) int {
	if len(taskTopics) == 0 || len(wanted) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(taskTopics))
	for _, t := range taskTopics {
		have[t] = struct{}{}
	}
	n := 0
	for _, w := range wanted {
		if _, ok := have[w]; ok {
			n++
		}
	}
	return n
}
