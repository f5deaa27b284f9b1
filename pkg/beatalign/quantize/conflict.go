package quantize

import "math"

// ConflictOffset is the spacing added between distinct-kind events that land on
// the same instant.
const ConflictOffset = 0.001

// conflictPrecision is the rounding applied before comparing times (microseconds).
const conflictPrecision = 1e6

func timeKey(t float64) int64 {
	return int64(math.Round(t * conflictPrecision))
}

// ResolveConflicts merges events that share a time after rounding to the microsecond.
// A group of one kind keeps its most confident member (first seen on ties). A group
// of mixed kinds keeps every member; the first stays put and the i-th later one
// moves i milliseconds later and is flagged as conflict resolved.
// Groups are emitted in the order their first member was seen.
func ResolveConflicts(events []AlignedEvent) []AlignedEvent {
	var order []int64
	groups := make(map[int64][]AlignedEvent, len(events))
	for _, e := range events {
		k := timeKey(e.Time)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	resolved := make([]AlignedEvent, 0, len(events))
	for _, k := range order {
		group := groups[k]
		switch {
		case len(group) == 1:
			resolved = append(resolved, group[0])
		case sameKind(group):
			resolved = append(resolved, mostConfident(group))
		default:
			resolved = append(resolved, group[0])
			for i, e := range group[1:] {
				resolved = append(resolved, shifted(e, float64(i+1)*ConflictOffset))
			}
		}
	}
	return resolved
}

func sameKind(group []AlignedEvent) bool {
	for _, e := range group[1:] {
		if e.Kind != group[0].Kind {
			return false
		}
	}
	return true
}

func mostConfident(group []AlignedEvent) AlignedEvent {
	best := group[0]
	for _, e := range group[1:] {
		if confidenceOf(e) > confidenceOf(best) {
			best = e
		}
	}
	return best
}

func confidenceOf(e AlignedEvent) float64 {
	if e.Info == nil {
		return 0
	}
	return e.Info.Confidence
}

func shifted(e AlignedEvent, offset float64) AlignedEvent {
	info := AlignmentInfo{OriginalTime: e.Time}
	if e.Info != nil {
		info = *e.Info
	}
	info.ConflictResolved = true
	e.Time += offset
	e.Info = &info
	return e
}
