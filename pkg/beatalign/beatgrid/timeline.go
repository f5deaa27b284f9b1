package beatgrid

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedTimeline is returned when a timeline cannot be used to build a grid.
var ErrMalformedTimeline = errors.New("malformed timeline")

// DefaultBeatsPerMeasure is the numerator of the 4/4 time signature used when none is given.
const DefaultBeatsPerMeasure = 4

// MaxBeats bounds the size of a timeline. A 24 hour track at 600 BPM stays below it.
const MaxBeats = 1 << 20

// Timeline is the beat information an alignment call consumes.
// Beats are onset times in seconds, strictly increasing.
type Timeline struct {
	BPM          float64   `json:"bpm"`
	BeatInterval float64   `json:"beat_interval"` // seconds per beat (60/BPM)
	Duration     float64   `json:"duration"`      // total length in seconds
	Beats        []float64 `json:"beats"`
}

// Measure is one complete bar of the timeline.
type Measure struct {
	Number      int       `json:"number"`
	StartTime   float64   `json:"start_time"`
	EndTime     float64   `json:"end_time"`
	BeatIndices []int     `json:"beat_indices"`
	Beats       []float64 `json:"beats_in_measure"`
}

// SubdivisionSet lists the straight subdivision positions of a timeline.
type SubdivisionSet struct {
	EighthNotes    []float64 `json:"eighth_notes"`
	SixteenthNotes []float64 `json:"sixteenth_notes"`
	Triplets       []float64 `json:"triplets"`
}

// FromBPM builds a regular timeline starting at 0 with one beat every 60/bpm seconds.
// The last beat is the first one at or past the point where duration/interval runs out,
// so that a grid always covers the whole track.
func FromBPM(bpm, duration float64) (Timeline, error) {
	if !isFinite(bpm) || bpm <= 0 {
		return Timeline{}, fmt.Errorf("%w: bpm must be positive, got %v", ErrMalformedTimeline, bpm)
	}
	if !isFinite(duration) || duration < 0 {
		return Timeline{}, fmt.Errorf("%w: duration must be non-negative, got %v", ErrMalformedTimeline, duration)
	}

	interval := 60.0 / bpm
	n := duration / interval
	if !isFinite(n) || n >= MaxBeats {
		return Timeline{}, fmt.Errorf("%w: %.0fs at %v bpm exceeds %d beats", ErrMalformedTimeline, duration, bpm, MaxBeats)
	}
	count := int(n) + 1
	beats := make([]float64, count)
	for i := range beats {
		beats[i] = float64(i) * interval
	}

	return Timeline{
		BPM:          bpm,
		BeatInterval: interval,
		Duration:     duration,
		Beats:        beats,
	}, nil
}

// Validate reports whether the timeline satisfies the structural rules an
// alignment call depends on.
func (t Timeline) Validate() error {
	if !isFinite(t.BeatInterval) || t.BeatInterval <= 0 {
		return fmt.Errorf("%w: beat interval must be positive, got %v", ErrMalformedTimeline, t.BeatInterval)
	}
	if !isFinite(t.Duration) || t.Duration < 0 {
		return fmt.Errorf("%w: duration must be non-negative, got %v", ErrMalformedTimeline, t.Duration)
	}
	if math.IsNaN(t.BPM) || math.IsInf(t.BPM, 0) {
		return fmt.Errorf("%w: bpm is not finite", ErrMalformedTimeline)
	}
	if len(t.Beats) == 0 {
		return fmt.Errorf("%w: no beats", ErrMalformedTimeline)
	}
	if len(t.Beats) > MaxBeats {
		return fmt.Errorf("%w: %d beats exceeds %d", ErrMalformedTimeline, len(t.Beats), MaxBeats)
	}
	for i, b := range t.Beats {
		if !isFinite(b) {
			return fmt.Errorf("%w: beat %d is not finite", ErrMalformedTimeline, i)
		}
		if i > 0 && b <= t.Beats[i-1] {
			return fmt.Errorf("%w: beat %d (%.6f) does not follow %.6f", ErrMalformedTimeline, i, b, t.Beats[i-1])
		}
	}
	return nil
}

// Shift returns a copy of the timeline with every beat moved by offset seconds.
func (t Timeline) Shift(offset float64) Timeline {
	beats := make([]float64, len(t.Beats))
	for i, b := range t.Beats {
		beats[i] = b + offset
	}
	t.Beats = beats
	return t
}

// Measures groups beats into complete measures of beatsPerMeasure beats.
// A trailing partial measure is not reported.
func Measures(t Timeline, beatsPerMeasure int) []Measure {
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = DefaultBeatsPerMeasure
	}

	var measures []Measure
	for i := 0; i+beatsPerMeasure <= len(t.Beats); i += beatsPerMeasure {
		indices := make([]int, beatsPerMeasure)
		beats := make([]float64, beatsPerMeasure)
		for j := 0; j < beatsPerMeasure; j++ {
			indices[j] = i + j
			beats[j] = t.Beats[i+j]
		}
		measures = append(measures, Measure{
			Number:      len(measures) + 1,
			StartTime:   t.Beats[i],
			EndTime:     t.Beats[i+beatsPerMeasure-1],
			BeatIndices: indices,
			Beats:       beats,
		})
	}
	return measures
}

// Downbeats returns the first beat of every measure, including a trailing partial one.
func Downbeats(t Timeline, beatsPerMeasure int) []float64 {
	if beatsPerMeasure <= 0 {
		beatsPerMeasure = DefaultBeatsPerMeasure
	}

	downbeats := make([]float64, 0, len(t.Beats)/beatsPerMeasure+1)
	for i := 0; i < len(t.Beats); i += beatsPerMeasure {
		downbeats = append(downbeats, t.Beats[i])
	}
	return downbeats
}

// Subdivisions lists straight eighth, sixteenth and triplet positions for every beat.
// Positions are not clipped to the duration.
func Subdivisions(t Timeline) SubdivisionSet {
	set := SubdivisionSet{
		EighthNotes:    make([]float64, 0, len(t.Beats)*2),
		SixteenthNotes: make([]float64, 0, len(t.Beats)*4),
		Triplets:       make([]float64, 0, len(t.Beats)*3),
	}
	for _, b := range t.Beats {
		set.EighthNotes = append(set.EighthNotes, b, b+t.BeatInterval/2)
		for i := 0; i < 4; i++ {
			set.SixteenthNotes = append(set.SixteenthNotes, b+float64(i)*t.BeatInterval/4)
		}
		for i := 0; i < 3; i++ {
			set.Triplets = append(set.Triplets, b+float64(i)*t.BeatInterval/3)
		}
	}
	return set
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Spec is the wire form of a timeline: a tempo and length, plus an optional
// explicit beat list (for example from an external beat tracker).
type Spec struct {
	BPM      float64   `json:"bpm" yaml:"bpm"`
	Duration float64   `json:"duration" yaml:"duration"`
	Beats    []float64 `json:"beats,omitempty" yaml:"beats"`
}

// Timeline resolves the spec. Without beats the timeline is regular from 0.
func (s Spec) Timeline() (Timeline, error) {
	if len(s.Beats) == 0 {
		return FromBPM(s.BPM, s.Duration)
	}
	if !isFinite(s.BPM) || s.BPM <= 0 {
		return Timeline{}, fmt.Errorf("%w: bpm must be positive, got %v", ErrMalformedTimeline, s.BPM)
	}
	t := Timeline{
		BPM:          s.BPM,
		BeatInterval: 60.0 / s.BPM,
		Duration:     s.Duration,
		Beats:        append([]float64(nil), s.Beats...),
	}
	return t, t.Validate()
}
