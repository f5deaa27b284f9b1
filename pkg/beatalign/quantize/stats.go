package quantize

import "math"

// Stats summarizes one alignment call.
type Stats struct {
	TotalProcessed         int     `json:"total_processed"`
	AlignedCount           int     `json:"aligned_count"`
	PreservedCount         int     `json:"preserved_count"`
	ConflictsResolved      int     `json:"conflicts_resolved"`
	OutsideToleranceCount  int     `json:"outside_tolerance_count"`
	AverageAdjustment      float64 `json:"average_adjustment"`
	MaxAdjustment          float64 `json:"max_adjustment"`
	AverageClosestDistance float64 `json:"average_closest_distance"`
	MaxClosestDistance     float64 `json:"max_closest_distance"`
	Error                  string  `json:"error,omitempty"`
}

// summary is a running mean/max over non-negative samples.
type summary struct {
	n   int
	sum float64
	max float64
}

func (s summary) add(v float64) summary {
	return summary{n: s.n + 1, sum: s.sum + v, max: math.Max(s.max, v)}
}

func (s summary) mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// tally is the value folded over the per-event loop.
type tally struct {
	processed        int
	aligned          int
	preserved        int
	outsideTolerance int
	adjustments      summary
	distances        summary
}

func (t tally) record(r Result, preserve bool) tally {
	t.processed++
	switch {
	case r.Aligned:
		t.aligned++
		t.adjustments = t.adjustments.add(math.Abs(r.Adjustment))
	case preserve:
		t.preserved++
		if r.Reason == ReasonOutsideTolerance {
			t.outsideTolerance++
			t.distances = t.distances.add(r.ClosestDistance)
		}
	}
	return t
}

func (t tally) stats(conflicts int) Stats {
	return Stats{
		TotalProcessed:         t.processed,
		AlignedCount:           t.aligned,
		PreservedCount:         t.preserved,
		ConflictsResolved:      conflicts,
		OutsideToleranceCount:  t.outsideTolerance,
		AverageAdjustment:      t.adjustments.mean(),
		MaxAdjustment:          t.adjustments.max,
		AverageClosestDistance: t.distances.mean(),
		MaxClosestDistance:     t.distances.max,
	}
}
