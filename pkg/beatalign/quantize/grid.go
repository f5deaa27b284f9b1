package quantize

import (
	"fmt"
	"slices"
)

// Position classifies a grid point by its place in the beat.
type Position string

const (
	PositionOnBeat      Position = "on_beat"
	PositionOffBeat     Position = "off_beat"
	PositionSubdivision Position = "subdivision"
	PositionSwingOn     Position = "swing_on"
	PositionSwingOff    Position = "swing_off"
	PositionTriplet     Position = "triplet"
)

// GridPoint is one on-grid instant. Strength is the metrical weight in [0,1];
// it only affects confidence, never whether a point is eligible.
type GridPoint struct {
	Time       float64  `json:"time"`
	Label      string   `json:"type"`
	Position   Position `json:"beat_position"`
	Strength   float64  `json:"strength"`
	SwingRatio float64  `json:"swing_ratio,omitempty"`
}

// GenerateGrid builds the quantization grid for mode over beats shifted by origin.
// Points are sorted by time and lie within [0, duration].
func GenerateGrid(beats []float64, interval, duration float64, mode Mode, swingRatio, origin float64) []GridPoint {
	if mode == nil || interval <= 0 {
		return nil
	}

	var grid []GridPoint
	for idx, beat := range beats {
		b := beat + origin
		if b > duration {
			continue
		}
		grid = mode.beatPoints(grid, idx, b, interval, swingRatio)
	}

	grid = slices.DeleteFunc(grid, func(p GridPoint) bool {
		return p.Time < 0 || p.Time > duration
	})
	slices.SortStableFunc(grid, func(a, b GridPoint) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return grid
}

func (m StraightMode) beatPoints(dst []GridPoint, _ int, b, interval, _ float64) []GridPoint {
	switch m.Subdivision {
	case 1:
		return append(dst, GridPoint{Time: b, Label: "quarter", Position: PositionOnBeat, Strength: 1.0})
	case 2:
		return append(dst,
			GridPoint{Time: b, Label: "eighth_on", Position: PositionOnBeat, Strength: 1.0},
			GridPoint{Time: b + interval/2, Label: "eighth_off", Position: PositionOffBeat, Strength: 0.7},
		)
	}

	name := "sixteenth"
	if m.Subdivision != 4 {
		name = "subdivision"
	}
	for i := 0; i < m.Subdivision; i++ {
		p := GridPoint{
			Time:     b + float64(i)*interval/float64(m.Subdivision),
			Label:    fmt.Sprintf("%s_%d", name, i),
			Position: PositionSubdivision,
			Strength: 0.6,
		}
		switch i {
		case 0:
			p.Position = PositionOnBeat
			p.Strength = 1.0
		case m.Subdivision / 2:
			p.Strength = 0.8
		}
		dst = append(dst, p)
	}
	return dst
}

func (m SwingMode) beatPoints(dst []GridPoint, _ int, b, interval, swingRatio float64) []GridPoint {
	step := interval / float64(m.Subdivision)
	delay := step * (swingRatio - 0.5) * 2
	for i := 0; i < m.Subdivision; i++ {
		p := GridPoint{
			Time:       b + float64(i)*step,
			Label:      fmt.Sprintf("%s_%d", m.Value(), i),
			Position:   PositionSwingOn,
			Strength:   0.7,
			SwingRatio: swingRatio,
		}
		if i%2 == 1 {
			p.Time += delay
			p.Position = PositionSwingOff
		}
		if i == 0 {
			p.Strength = 1.0
		}
		dst = append(dst, p)
	}
	return dst
}

func (m TripletMode) beatPoints(dst []GridPoint, idx int, b, interval, _ float64) []GridPoint {
	span := m.Beats
	if span < 1 {
		span = 1
	}
	// quarter triplets are anchored on every other beat
	if idx%span != 0 {
		return dst
	}

	name := "triplet_eighth"
	if span == 2 {
		name = "triplet_quarter"
	}
	for i := 0; i < 3; i++ {
		strength := 0.6
		if i == 0 {
			strength = 1.0
		}
		dst = append(dst, GridPoint{
			Time:     b + float64(i)*float64(span)*interval/3,
			Label:    fmt.Sprintf("%s_%d", name, i),
			Position: PositionTriplet,
			Strength: strength,
		})
	}
	return dst
}

func (OffMode) beatPoints(dst []GridPoint, _ int, _, _, _ float64) []GridPoint {
	return dst
}
