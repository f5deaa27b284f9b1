package beatgrid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBPM(t *testing.T) {
	tl, err := FromBPM(120, 2.0)
	require.NoError(t, err)

	assert.Equal(t, 120.0, tl.BPM)
	assert.Equal(t, 0.5, tl.BeatInterval)
	assert.Equal(t, 2.0, tl.Duration)
	assert.Equal(t, []float64{0, 0.5, 1.0, 1.5, 2.0}, tl.Beats)
	assert.NoError(t, tl.Validate())
}

func TestFromBPMPartialBeat(t *testing.T) {
	tl, err := FromBPM(100, 1.0)
	require.NoError(t, err)

	// 60/100 = 0.6s; a single beat past 0 fits in 1.0s
	assert.InDeltaSlice(t, []float64{0, 0.6}, tl.Beats, 1e-12)
}

func TestFromBPMZeroDuration(t *testing.T) {
	tl, err := FromBPM(90, 0)
	require.NoError(t, err)

	assert.Equal(t, []float64{0}, tl.Beats)
}

func TestFromBPMRejectsBadInput(t *testing.T) {
	for _, bpm := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := FromBPM(bpm, 10)
		assert.ErrorIs(t, err, ErrMalformedTimeline, "bpm=%v", bpm)
	}
	_, err := FromBPM(120, -1)
	assert.ErrorIs(t, err, ErrMalformedTimeline)
}

func TestFromBPMRejectsOversizedTimeline(t *testing.T) {
	for _, duration := range []float64{1e300, 1e10, math.MaxFloat64} {
		assert.NotPanics(t, func() {
			_, err := FromBPM(120, duration)
			assert.ErrorIs(t, err, ErrMalformedTimeline, "duration %v", duration)
		})
	}

	// just under the cap still builds
	tl, err := FromBPM(600, 24*60*60)
	require.NoError(t, err)
	assert.Len(t, tl.Beats, 24*60*60*10+1)

	_, err = Spec{BPM: 120, Duration: 1e300}.Timeline()
	assert.ErrorIs(t, err, ErrMalformedTimeline)
}

func TestValidate(t *testing.T) {
	valid := Timeline{BPM: 120, BeatInterval: 0.5, Duration: 2, Beats: []float64{0, 0.5, 1}}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Timeline){
		"zero interval":     func(tl *Timeline) { tl.BeatInterval = 0 },
		"negative interval": func(tl *Timeline) { tl.BeatInterval = -0.5 },
		"nan interval":      func(tl *Timeline) { tl.BeatInterval = math.NaN() },
		"negative duration": func(tl *Timeline) { tl.Duration = -1 },
		"infinite bpm":      func(tl *Timeline) { tl.BPM = math.Inf(1) },
		"no beats":          func(tl *Timeline) { tl.Beats = nil },
		"repeated beat":     func(tl *Timeline) { tl.Beats = []float64{0, 0.5, 0.5} },
		"decreasing beats":  func(tl *Timeline) { tl.Beats = []float64{1, 0.5} },
		"nan beat":          func(tl *Timeline) { tl.Beats = []float64{0, math.NaN()} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tl := valid
			tl.Beats = append([]float64(nil), valid.Beats...)
			mutate(&tl)
			assert.ErrorIs(t, tl.Validate(), ErrMalformedTimeline)
		})
	}
}

func TestShift(t *testing.T) {
	tl, err := FromBPM(120, 1)
	require.NoError(t, err)

	shifted := tl.Shift(0.1)

	assert.InDeltaSlice(t, []float64{0.1, 0.6, 1.1}, shifted.Beats, 1e-12)
	assert.Equal(t, []float64{0, 0.5, 1.0}, tl.Beats, "original must not change")
}

func TestMeasures(t *testing.T) {
	tl, err := FromBPM(120, 4.5)
	require.NoError(t, err)
	require.Len(t, tl.Beats, 10)

	measures := Measures(tl, 4)

	require.Len(t, measures, 2)
	assert.Equal(t, 1, measures[0].Number)
	assert.Equal(t, 0.0, measures[0].StartTime)
	assert.Equal(t, 1.5, measures[0].EndTime)
	assert.Equal(t, []int{0, 1, 2, 3}, measures[0].BeatIndices)
	assert.Equal(t, 2, measures[1].Number)
	assert.Equal(t, []float64{2.0, 2.5, 3.0, 3.5}, measures[1].Beats)
}

func TestMeasuresDefaultsToFourFour(t *testing.T) {
	tl, err := FromBPM(120, 3.5)
	require.NoError(t, err)

	assert.Equal(t, Measures(tl, 4), Measures(tl, 0))
}

func TestDownbeats(t *testing.T) {
	tl, err := FromBPM(120, 4.5)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 2.0, 4.0}, Downbeats(tl, 4))
	assert.Equal(t, []float64{0, 1.5, 3.0, 4.5}, Downbeats(tl, 3))
}

func TestSubdivisions(t *testing.T) {
	tl := Timeline{BPM: 120, BeatInterval: 0.5, Duration: 0.5, Beats: []float64{0, 0.5}}

	set := Subdivisions(tl)

	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, set.EighthNotes)
	assert.Equal(t, []float64{0, 0.125, 0.25, 0.375, 0.5, 0.625, 0.75, 0.875}, set.SixteenthNotes)
	require.Len(t, set.Triplets, 6)
	assert.InDelta(t, 0.5/3, set.Triplets[1], 1e-12)
}

func TestSpecTimeline(t *testing.T) {
	t.Run("tempo only", func(t *testing.T) {
		tl, err := Spec{BPM: 120, Duration: 1}.Timeline()
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 0.5, 1.0}, tl.Beats)
	})

	t.Run("explicit beats", func(t *testing.T) {
		beats := []float64{0.1, 0.6, 1.12}
		tl, err := Spec{BPM: 120, Duration: 2, Beats: beats}.Timeline()
		require.NoError(t, err)
		assert.Equal(t, beats, tl.Beats)
		assert.Equal(t, 0.5, tl.BeatInterval)

		beats[0] = 99
		assert.Equal(t, 0.1, tl.Beats[0], "beats are copied")
	})

	t.Run("unsorted beats", func(t *testing.T) {
		_, err := Spec{BPM: 120, Duration: 2, Beats: []float64{1, 0.5}}.Timeline()
		assert.ErrorIs(t, err, ErrMalformedTimeline)
	})

	t.Run("missing bpm", func(t *testing.T) {
		_, err := Spec{Duration: 2, Beats: []float64{0, 0.5}}.Timeline()
		assert.ErrorIs(t, err, ErrMalformedTimeline)
	})
}
