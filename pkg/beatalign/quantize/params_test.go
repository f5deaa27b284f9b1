package quantize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestApplyEmptyParamsKeepsBase(t *testing.T) {
	base := DefaultOptions()

	got, err := base.Apply(Params{})

	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestApplyOverrides(t *testing.T) {
	got, err := DefaultOptions().Apply(Params{
		Mode:            "1/8+swing",
		Swing:           "heavy",
		Tolerance:       ptr(0.4),
		PreserveOffGrid: ptr(false),
		MeasureOrigin:   ptr(0.12),
	})

	require.NoError(t, err)
	assert.Equal(t, EighthSwing, got.Mode)
	assert.Equal(t, 0.67, got.SwingRatio)
	assert.Equal(t, 0.4, got.Tolerance)
	assert.False(t, got.PreserveOffGrid)
	assert.Equal(t, 0.12, got.MeasureOrigin)
}

func TestApplyCustomSwing(t *testing.T) {
	t.Run("custom preset", func(t *testing.T) {
		got, err := DefaultOptions().Apply(Params{Mode: "1/16+swing", Swing: "custom", CustomSwing: ptr(0.72)})
		require.NoError(t, err)
		assert.Equal(t, 0.72, got.SwingRatio)
	})

	t.Run("preset ignores custom ratio", func(t *testing.T) {
		got, err := DefaultOptions().Apply(Params{Swing: "light", CustomSwing: ptr(0.9)})
		require.NoError(t, err)
		assert.Equal(t, 0.55, got.SwingRatio)
	})

	t.Run("ratio alone", func(t *testing.T) {
		got, err := DefaultOptions().Apply(Params{CustomSwing: ptr(0.8)})
		require.NoError(t, err)
		assert.Equal(t, 0.8, got.SwingRatio)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := DefaultOptions().Apply(Params{Mode: "1/8+swing", Swing: "custom", CustomSwing: ptr(1.4)})
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})
}

func TestApplyRejectsUnknownValues(t *testing.T) {
	_, err := DefaultOptions().Apply(Params{Mode: "1/64"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = DefaultOptions().Apply(Params{Swing: "lazy"})
	assert.ErrorIs(t, err, ErrUnknownSwing)
}

func TestParamsJSON(t *testing.T) {
	var p Params
	require.NoError(t, json.Unmarshal([]byte(`{"quantizeMode":"1/4","swingAmount":"medium","customSwing":0.6,"tolerance":0.3,"preserveOffBeat":false}`), &p))

	assert.Equal(t, "1/4", p.Mode)
	assert.Equal(t, "medium", p.Swing)
	require.NotNil(t, p.PreserveOffGrid)
	assert.False(t, *p.PreserveOffGrid)
	assert.Nil(t, p.MeasureOrigin)
}
