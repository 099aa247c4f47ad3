package matching

import (
	"github.com/campuslink/matchmaker/internal/logging"
)

// OverlapResult is the shared availability of a set of participants.
type OverlapResult struct {
	Minutes int
	Windows []Slot // sorted by weekday (Monday first), then start
}

// ValidSlots drops malformed slots (end not after start, outside the day,
// unknown weekday) and logs one warning per dropped slot.
func ValidSlots(owner string, slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Valid() {
			out = append(out, s)
			continue
		}
		logger := logging.For("overlap")
		logger.Warn().
			Str("owner", owner).
			Int("day", int(s.Day)).
			Int("start", s.Start).
			Int("end", s.End).
			Msg("dropping malformed availability slot")
	}
	return out
}

// MergeSlots sorts slots and merges overlapping or adjacent intervals on the
// same day. Invalid slots are skipped. Merging merged output is a no-op.
func MergeSlots(slots []Slot) []Slot {
	sorted := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.Valid() {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return []Slot{}
	}
	sortSlots(sorted)

	merged := []Slot{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Day == last.Day && s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// intersect returns the common intervals of two merged, sorted slot lists.
func intersect(a, b []Slot) []Slot {
	out := []Slot{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		x, y := a[i], b[j]
		if x.Day != y.Day {
			if weekIndex(x.Day) < weekIndex(y.Day) {
				i++
			} else {
				j++
			}
			continue
		}
		start := max(x.Start, y.Start)
		end := min(x.End, y.End)
		if start < end {
			out = append(out, Slot{Day: x.Day, Start: start, End: end})
		}
		if x.End < y.End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Overlap intersects the availability of every participant. Each set is
// merged first, so double-booked or adjacent slots never count twice. The
// intersection folds left across sets; the result does not depend on their
// order. Fewer than one set yields no overlap.
func Overlap(sets ...[]Slot) OverlapResult {
	if len(sets) == 0 {
		return OverlapResult{Windows: []Slot{}}
	}
	acc := MergeSlots(sets[0])
	for _, s := range sets[1:] {
		if len(acc) == 0 {
			break
		}
		acc = intersect(acc, MergeSlots(s))
	}
	return newOverlapResult(acc)
}

// overlapMerged is Overlap for inputs that are already merged.
func overlapMerged(sets ...[]Slot) OverlapResult {
	if len(sets) == 0 {
		return OverlapResult{Windows: []Slot{}}
	}
	acc := sets[0]
	for _, s := range sets[1:] {
		acc = intersect(acc, s)
	}
	return newOverlapResult(acc)
}

func newOverlapResult(windows []Slot) OverlapResult {
	total := 0
	for _, w := range windows {
		total += w.Minutes()
	}
	return OverlapResult{Minutes: total, Windows: windows}
}

// OverlapMatrix returns pairwise overlap minutes between participants.
// The diagonal holds each participant's own merged availability.
func OverlapMatrix(sets [][]Slot) [][]int {
	merged := make([][]Slot, len(sets))
	for i, s := range sets {
		merged[i] = MergeSlots(s)
	}
	m := make([][]int, len(sets))
	for i := range m {
		m[i] = make([]int, len(sets))
	}
	for i := range merged {
		m[i][i] = newOverlapResult(merged[i]).Minutes
		for j := i + 1; j < len(merged); j++ {
			n := overlapMerged(merged[i], merged[j]).Minutes
			m[i][j], m[j][i] = n, n
		}
	}
	return m
}
