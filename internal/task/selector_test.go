package task

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/duel-platform/internal/duel"
)

func slots(levels map[string]int) duel.Configuration {
	cfg := duel.Configuration{Tasks: map[string]duel.TaskConfiguration{}}
	for k, lvl := range levels {
		cfg.Tasks[k] = duel.TaskConfiguration{Level: lvl}
	}
	return cfg
}

func TestSelector_ClosestLevel(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	candidates := []duel.Task{
		{ID: "easy", Level: 1},
		{ID: "mid", Level: 3},
		{ID: "hard", Level: 5},
	}

	chosen, err := s.ChooseTasks(duel.Participant{}, duel.Participant{}, slots(map[string]int{"A": 4, "B": 1}), candidates)
	require.NoError(t, err)

	// A is filled first and takes one of the level-distance-1 tasks
	assert.Contains(t, []string{"mid", "hard"}, chosen["A"].ID)
	assert.Equal(t, "easy", chosen["B"].ID)
}

func TestSelector_TopicsBeforeLevel(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	candidates := []duel.Task{
		{ID: "exact-level", Level: 2, Topics: []string{"math"}},
		{ID: "graph", Level: 5, Topics: []string{"graphs", "dp"}},
		{ID: "graph-only", Level: 2, Topics: []string{"graphs"}},
	}
	cfg := duel.Configuration{Tasks: map[string]duel.TaskConfiguration{
		"A": {Level: 2, Topics: []string{"graphs", "dp"}},
	}}

	chosen, err := s.ChooseTasks(duel.Participant{}, duel.Participant{}, cfg, candidates)
	require.NoError(t, err)
	assert.Equal(t, "graph", chosen["A"].ID)
}

func TestSelector_ExcludesSolved(t *testing.T) {
	s := NewSelector(nil)
	candidates := []duel.Task{{ID: "t1", Level: 1}, {ID: "t2", Level: 1}, {ID: "t3", Level: 9}}
	p1 := duel.Participant{UserID: 1, SolvedTaskIDs: []string{"t1"}}
	p2 := duel.Participant{UserID: 2, SolvedTaskIDs: []string{"t2"}}

	chosen, err := s.ChooseTasks(p1, p2, slots(map[string]int{"A": 1}), candidates)
	require.NoError(t, err)
	assert.Equal(t, "t3", chosen["A"].ID)
}

func TestSelector_FallsBackWhenEverythingSolved(t *testing.T) {
	s := NewSelector(nil)
	candidates := []duel.Task{{ID: "t1", Level: 1}}
	p1 := duel.Participant{UserID: 1, SolvedTaskIDs: []string{"t1"}}

	chosen, err := s.ChooseTasks(p1, duel.Participant{}, slots(map[string]int{"A": 1}), candidates)
	require.NoError(t, err)
	assert.Equal(t, "t1", chosen["A"].ID)
}

func TestSelector_FallsBackWhenUnsolvedCannotFillSlots(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	candidates := []duel.Task{{ID: "t1", Level: 1}, {ID: "t2", Level: 2}, {ID: "t3", Level: 3}}
	p1 := duel.Participant{UserID: 1, SolvedTaskIDs: []string{"t1"}}
	p2 := duel.Participant{UserID: 2, SolvedTaskIDs: []string{"t2"}}

	chosen, err := s.ChooseTasks(p1, p2, slots(map[string]int{"A": 1, "B": 2}), candidates)
	require.NoError(t, err)
	require.Len(t, chosen, 2)
	assert.Equal(t, "t1", chosen["A"].ID)
	assert.Equal(t, "t2", chosen["B"].ID)
}

func TestSelector_TaskUsedOnce(t *testing.T) {
	s := NewSelector(nil)
	candidates := []duel.Task{{ID: "t1", Level: 1}, {ID: "t2", Level: 1}}

	chosen, err := s.ChooseTasks(duel.Participant{}, duel.Participant{}, slots(map[string]int{"A": 1, "B": 1}), candidates)
	require.NoError(t, err)
	assert.NotEqual(t, chosen["A"].ID, chosen["B"].ID)

	_, err = s.ChooseTasks(duel.Participant{}, duel.Participant{}, slots(map[string]int{"A": 1, "B": 1, "C": 1}), candidates)
	assert.ErrorIs(t, err, ErrNoTasks)
}

func TestSelector_Failures(t *testing.T) {
	s := NewSelector(nil)

	_, err := s.ChooseTasks(duel.Participant{}, duel.Participant{}, slots(map[string]int{"A": 1}), nil)
	assert.ErrorIs(t, err, ErrNoTasks)

	_, err = s.ChooseTasks(duel.Participant{}, duel.Participant{}, duel.Configuration{}, []duel.Task{{ID: "t1"}})
	assert.ErrorIs(t, err, ErrNoSlots)
}
