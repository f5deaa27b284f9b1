package quantize

import (
	"math"
	"sort"
)

// Reason explains why an event was not snapped.
type Reason string

const (
	ReasonEmptyGrid        Reason = "empty_grid"
	ReasonOutsideTolerance Reason = "outside_tolerance"
)

// Confidence weights. They sum to 1 so confidence stays in [0,1].
const (
	proximityWeight = 0.7
	strengthWeight  = 0.3
)

// Result is the outcome of matching one event time against a grid.
// When Aligned is false only Reason and ClosestDistance are meaningful.
type Result struct {
	Aligned         bool
	NewTime         float64
	Adjustment      float64
	GridLabel       string
	Confidence      float64
	Reason          Reason
	ClosestDistance float64
}

// Match snaps t to the nearest point of grid if it lies within
// tolerance*interval seconds. grid must be sorted by time; on equal distance the
// earlier point wins. A NaN or infinite t is never within tolerance.
func Match(t float64, grid []GridPoint, tolerance, interval float64) Result {
	if len(grid) == 0 {
		return Result{Reason: ReasonEmptyGrid}
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Result{Reason: ReasonOutsideTolerance, ClosestDistance: math.Inf(1)}
	}

	idx := nearest(t, grid)
	point := grid[idx]
	distance := math.Abs(point.Time - t)
	toleranceSeconds := tolerance * interval

	if distance > toleranceSeconds {
		return Result{Reason: ReasonOutsideTolerance, ClosestDistance: distance}
	}

	proximity := 1.0
	if toleranceSeconds > 0 {
		proximity = 1 - distance/toleranceSeconds
	}
	return Result{
		Aligned:         true,
		NewTime:         point.Time,
		Adjustment:      point.Time - t,
		GridLabel:       point.Label,
		Confidence:      proximityWeight*proximity + strengthWeight*point.Strength,
		ClosestDistance: distance,
	}
}

// nearest returns the index of the grid point closest to t, preferring the
// lowest index among equally close points.
func nearest(t float64, grid []GridPoint) int {
	right := sort.Search(len(grid), func(i int) bool { return grid[i].Time >= t })
	if right == len(grid) {
		return firstOfRun(grid, len(grid)-1)
	}
	if right == 0 {
		return 0
	}

	left := right - 1
	if t-grid[left].Time <= grid[right].Time-t {
		return firstOfRun(grid, left)
	}
	return right
}

// firstOfRun walks back over points sharing grid[i].Time.
func firstOfRun(grid []GridPoint, i int) int {
	for i > 0 && grid[i-1].Time == grid[i].Time {
		i--
	}
	return i
}
