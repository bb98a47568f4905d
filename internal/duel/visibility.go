package duel

import "sort"

// SolvedTaskWinners maps each slot to the user who solved it first.
// A slot counts only when its earliest accepted submission at or before the
// deadline has no unjudged submission sent at or before it.
func SolvedTaskWinners(d *Duel, submissions []Submission) map[string]int64 {
	winners := make(map[string]int64)
	if len(submissions) == 0 {
		return winners
	}

	for _, key := range sortedKeys(d.Tasks) {
		var slot []Submission
		for _, s := range submissions {
			if s.TaskKey == key && !s.SubmitTime.After(d.DeadlineTime) {
				slot = append(slot, s)
			}
		}
		sort.SliceStable(slot, func(i, j int) bool {
			if !slot[i].SubmitTime.Equal(slot[j].SubmitTime) {
				return slot[i].SubmitTime.Before(slot[j].SubmitTime)
			}
			return slot[i].ID < slot[j].ID
		})

		var first *Submission
		for i := range slot {
			if slot[i].IsAccepted() {
				first = &slot[i]
				break
			}
		}
		if first == nil {
			continue
		}

		pending := false
		for _, s := range slot {
			if s.Status != SubmissionDone && !s.SubmitTime.After(first.SubmitTime) {
				pending = true
				break
			}
		}
		if pending {
			continue
		}

		winners[key] = first.UserID
	}
	return winners
}

// VisibleTasks returns the slots userID may see. Parallel duels show every slot;
// sequential duels show slots the user won plus the first unsolved slot.
func VisibleTasks(d *Duel, submissions []Submission, userID int64) map[string]Task {
	visible := make(map[string]Task, len(d.Tasks))
	if d.Configuration.TasksOrder == TasksOrderParallel {
		for key, task := range d.Tasks {
			visible[key] = task
		}
		return visible
	}

	winners := SolvedTaskWinners(d, submissions)
	for key, winner := range winners {
		if winner == userID {
			visible[key] = d.Tasks[key]
		}
	}
	for _, key := range sortedKeys(d.Tasks) {
		if _, solved := winners[key]; !solved {
			visible[key] = d.Tasks[key]
			break
		}
	}
	return visible
}
