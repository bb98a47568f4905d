package queue

import (
	"sort"
	"time"
)

// selectInvitedPair returns the oldest mutual invitation, if any.
func selectInvitedPair(entries []*WaitingEntry, index map[int64]*WaitingEntry) (Pair, bool) {
	var (
		bestA, bestB *WaitingEntry
		bestOldest   time.Time
	)

	for _, entry := range entries {
		if entry.ExpectedOpponentID == nil || !entry.IsOpponentAssigned {
			continue
		}
		opponent, ok := index[*entry.ExpectedOpponentID]
		if !ok || opponent.ExpectedOpponentID == nil || *opponent.ExpectedOpponentID != entry.UserID {
			continue
		}
		// each mutual pair is visited from both sides; keep one
		if entry.UserID > opponent.UserID {
			continue
		}

		oldest := earliest(entry.EnqueuedAt, opponent.EnqueuedAt)
		if bestA == nil ||
			oldest.Before(bestOldest) ||
			(oldest.Equal(bestOldest) && entry.UserID < bestA.UserID) {
			bestA, bestB, bestOldest = entry, opponent, oldest
		}
	}

	if bestA == nil {
		return Pair{}, false
	}

	first, second := ordered(bestA, bestB)
	configurationID := first.ConfigurationID
	if configurationID == nil {
		configurationID = second.ConfigurationID
	}
	return newPair(first, second, configurationID), true
}

// selectRankedPair picks, among open searches sorted by rating, the adjacent
// pair with the globally smallest rating difference. On a 1-D axis the closest
// pair of any set is always adjacent after sorting, so the scan is linear.
func selectRankedPair(entries []*WaitingEntry) (Pair, bool) {
	sorted := make([]*WaitingEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ExpectedOpponentID == nil {
			sorted = append(sorted, entry)
		}
	}
	if len(sorted) < 2 {
		return Pair{}, false
	}

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rating != b.Rating {
			return a.Rating < b.Rating
		}
		if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
			return a.EnqueuedAt.Before(b.EnqueuedAt)
		}
		return a.UserID < b.UserID
	})

	var (
		bestA, bestB *WaitingEntry
		bestDiff     int
	)
	for i := 0; i < len(sorted)-1; i++ {
		a, b := sorted[i], sorted[i+1]
		if !configurationsCompatible(a, b) {
			continue
		}

		diff := b.Rating - a.Rating
		if bestA == nil || diff < bestDiff || (diff == bestDiff && preferPair(a, b, bestA, bestB)) {
			bestA, bestB, bestDiff = a, b, diff
		}
	}

	if bestA == nil {
		return Pair{}, false
	}

	first, second := ordered(bestA, bestB)
	configurationID := first.ConfigurationID
	if configurationID == nil {
		configurationID = second.ConfigurationID
	}
	return newPair(first, second, configurationID), true
}

// preferPair breaks a rating-difference tie: earliest combined enqueue time,
// then ascending user ids.
func preferPair(a, b, bestA, bestB *WaitingEntry) bool {
	combined := a.EnqueuedAt.Sub(bestA.EnqueuedAt) + b.EnqueuedAt.Sub(bestB.EnqueuedAt)
	if combined != 0 {
		return combined < 0
	}

	lo, hi := minMax(a.UserID, b.UserID)
	bestLo, bestHi := minMax(bestA.UserID, bestB.UserID)
	if lo != bestLo {
		return lo < bestLo
	}
	return hi < bestHi
}

func configurationsCompatible(a, b *WaitingEntry) bool {
	return a.ConfigurationID == nil ||
		b.ConfigurationID == nil ||
		*a.ConfigurationID == *b.ConfigurationID
}

// ordered puts the earlier-enqueued entry first.
func ordered(a, b *WaitingEntry) (*WaitingEntry, *WaitingEntry) {
	if b.EnqueuedAt.Before(a.EnqueuedAt) ||
		(b.EnqueuedAt.Equal(a.EnqueuedAt) && b.UserID < a.UserID) {
		return b, a
	}
	return a, b
}

func newPair(first, second *WaitingEntry, configurationID *int64) Pair {
	pair := Pair{
		User1: copyEntry(first),
		User2: copyEntry(second),
	}
	if configurationID != nil {
		id := *configurationID
		pair.ConfigurationID = &id
	}
	return pair
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func minMax(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
