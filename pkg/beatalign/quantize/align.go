package quantize

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
)

// ErrInvalidOptions is returned when alignment options are out of range.
var ErrInvalidOptions = errors.New("invalid alignment options")

// ErrInvalidEvents is returned when an event time is NaN or infinite.
var ErrInvalidEvents = errors.New("invalid annotations")

// ErrMalformedTimeline aliases the timeline package error so callers of Align
// need a single import.
var ErrMalformedTimeline = beatgrid.ErrMalformedTimeline

// PreservedMode is the quantize_mode recorded on events kept at their original time.
const PreservedMode = "preserved"

// Options configures one alignment call.
type Options struct {
	Mode Mode
	// SwingRatio is used by swing modes only; 0.5 is straight, 1.0 fully late.
	SwingRatio float64
	// Tolerance is the snap window as a fraction of one beat.
	Tolerance float64
	// PreserveOffGrid keeps events that could not be snapped instead of dropping them.
	PreserveOffGrid bool
	// MeasureOrigin shifts every beat, usually to the first detected downbeat.
	MeasureOrigin float64
}

// DefaultOptions matches the annotation tool defaults: sixteenth grid, medium
// swing, a quarter-beat tolerance and off-grid preservation.
func DefaultOptions() Options {
	return Options{
		Mode:            Sixteenth,
		SwingRatio:      SwingMedium.Ratio(0),
		Tolerance:       0.25,
		PreserveOffGrid: true,
	}
}

// Validate checks the options independently of any timeline.
func (o Options) Validate() error {
	if o.Mode == nil {
		return fmt.Errorf("%w: mode is required", ErrInvalidOptions)
	}
	if math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0) || o.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be a non-negative fraction, got %v", ErrInvalidOptions, o.Tolerance)
	}
	if math.IsNaN(o.MeasureOrigin) || math.IsInf(o.MeasureOrigin, 0) {
		return fmt.Errorf("%w: measure origin is not finite", ErrInvalidOptions)
	}
	if _, ok := o.Mode.(SwingMode); ok {
		if math.IsNaN(o.SwingRatio) || o.SwingRatio < 0.5 || o.SwingRatio > 1.0 {
			return fmt.Errorf("%w: swing ratio must be within [0.5, 1.0], got %v", ErrInvalidOptions, o.SwingRatio)
		}
	}
	return nil
}

// QuantizationInfo echoes the effective grid parameters of a call.
type QuantizationInfo struct {
	Mode             string  `json:"mode"`
	SwingRatio       float64 `json:"swing_amount"`
	BeatInterval     float64 `json:"beat_interval"`
	BPM              float64 `json:"bpm"`
	GridPoints       int     `json:"grid_points"`
	ToleranceSeconds float64 `json:"tolerance_seconds"`
	Error            string  `json:"error,omitempty"`
}

// Report is everything one alignment call produces.
type Report struct {
	Events []AlignedEvent   `json:"aligned_annotations"`
	Stats  Stats            `json:"alignment_stats"`
	Info   QuantizationInfo `json:"quantization_info"`
}

// Align snaps events to the grid that opts selects over tl.
//
// Events are processed in input order and never modified; every output event is
// a new value. If tl or opts is unusable, Align returns the input events as they
// were (without alignment info), Stats.Error set, and an error wrapping
// ErrMalformedTimeline, ErrInvalidOptions or ErrInvalidEvents, so the caller
// can fall back safely.
func Align(events []Event, tl beatgrid.Timeline, opts Options) (Report, error) {
	if err := tl.Validate(); err != nil {
		return failed(events, err), err
	}
	if err := opts.Validate(); err != nil {
		return failed(events, err), err
	}
	for i, e := range events {
		if math.IsNaN(e.Time) || math.IsInf(e.Time, 0) {
			err := fmt.Errorf("%w: event %d has time %v", ErrInvalidEvents, i, e.Time)
			return failed(events, err), err
		}
	}

	grid := GenerateGrid(tl.Beats, tl.BeatInterval, tl.Duration, opts.Mode, opts.SwingRatio, opts.MeasureOrigin)
	mode := opts.Mode.Value()

	var acc tally
	emitted := make([]AlignedEvent, 0, len(events))
	for _, e := range events {
		r := Match(e.Time, grid, opts.Tolerance, tl.BeatInterval)
		acc = acc.record(r, opts.PreserveOffGrid)

		switch {
		case r.Aligned:
			emitted = append(emitted, AlignedEvent{
				Time:  r.NewTime,
				Kind:  e.Kind,
				Attrs: maps.Clone(e.Attrs),
				Info: &AlignmentInfo{
					OriginalTime: e.Time,
					Adjustment:   r.Adjustment,
					GridPosition: r.GridLabel,
					QuantizeMode: mode,
					Confidence:   r.Confidence,
				},
			})
		case opts.PreserveOffGrid:
			emitted = append(emitted, AlignedEvent{
				Time:  e.Time,
				Kind:  e.Kind,
				Attrs: maps.Clone(e.Attrs),
				Info: &AlignmentInfo{
					OriginalTime: e.Time,
					GridPosition: string(PositionOffBeat),
					QuantizeMode: PreservedMode,
					Confidence:   1.0,
					Reason:       r.Reason,
				},
			})
		}
	}

	resolved := ResolveConflicts(emitted)
	return Report{
		Events: resolved,
		Stats:  acc.stats(len(emitted) - len(resolved)),
		Info: QuantizationInfo{
			Mode:             mode,
			SwingRatio:       opts.SwingRatio,
			BeatInterval:     tl.BeatInterval,
			BPM:              tl.BPM,
			GridPoints:       len(grid),
			ToleranceSeconds: opts.Tolerance * tl.BeatInterval,
		},
	}, nil
}

func failed(events []Event, err error) Report {
	out := make([]AlignedEvent, len(events))
	for i, e := range events {
		out[i] = AlignedEvent{Time: e.Time, Kind: e.Kind, Attrs: maps.Clone(e.Attrs)}
	}
	return Report{
		Events: out,
		Stats:  Stats{Error: err.Error()},
		Info:   QuantizationInfo{Error: err.Error()},
	}
}
