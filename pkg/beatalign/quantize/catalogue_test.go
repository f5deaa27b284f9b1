package quantize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModesOrder(t *testing.T) {
	var values []string
	for _, m := range Modes() {
		values = append(values, m.Value())
	}

	assert.Equal(t, []string{"1/4", "1/8", "1/16", "1/4+swing", "1/8+swing", "1/16+swing", "1/4T", "1/8T", "off"}, values)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes() {
		got, err := ParseMode(m.Value())
		require.NoError(t, err, m.Value())
		assert.Equal(t, m, got)
	}

	got, err := ParseMode(" 1/16 ")
	require.NoError(t, err)
	assert.Equal(t, Sixteenth, got)

	for _, bad := range []string{"", "1/32", "quarter", "1/8 swing"} {
		_, err := ParseMode(bad)
		assert.ErrorIs(t, err, ErrUnknownMode, bad)
	}
}

func TestParseSwing(t *testing.T) {
	cases := map[string]float64{"light": 0.55, "Medium": 0.60, " heavy ": 0.67}
	for in, want := range cases {
		s, err := ParseSwing(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, s.Ratio(0.9), in)
	}

	custom, err := ParseSwing("custom")
	require.NoError(t, err)
	assert.Equal(t, 0.58, custom.Ratio(0.58))

	_, err = ParseSwing("groovy")
	assert.ErrorIs(t, err, ErrUnknownSwing)
}

func TestCatalogue(t *testing.T) {
	info := Catalogue()

	require.Len(t, info.Modes, 9)
	assert.Equal(t, ModeOption{Value: "1/16", Label: "Sixteenth Notes", Description: "Align to fine subdivisions"}, info.Modes[2])
	assert.Equal(t, "1/8+swing", info.Modes[4].Value)
	assert.Equal(t, "Eighth Notes + Swing", info.Modes[4].Label)
	assert.Equal(t, "off", info.Modes[8].Value)

	require.Len(t, info.Swings, 4)
	assert.Equal(t, "light", info.Swings[0].Value)
	require.NotNil(t, info.Swings[2].Ratio)
	assert.Equal(t, 0.67, *info.Swings[2].Ratio)
	assert.Equal(t, "custom", info.Swings[3].Value)
	assert.Nil(t, info.Swings[3].Ratio)

	out, err := json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"quantization_modes"`)
	assert.Contains(t, string(out), `"swing_amounts"`)
}
