package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, sampleRate, channels, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = (i % 200) - 100
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

func TestReadWAVInfo(t *testing.T) {
	path := writeTestWAV(t, 8000, 1, 8000*3/2)

	info, err := ReadWAVInfo(path)
	require.NoError(t, err)

	assert.Equal(t, "track.wav", info.Filename)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.InDelta(t, 1.5, info.DurationSec, 1e-6)
}

func TestReadWAVInfoStereo(t *testing.T) {
	path := writeTestWAV(t, 11025, 2, 11025)

	info, err := ReadWAVInfo(path)
	require.NoError(t, err)

	assert.Equal(t, 2, info.Channels)
	assert.InDelta(t, 1.0, info.DurationSec, 1e-6)
	assert.Equal(t, 11025, info.SampleRate)
}

func TestInfoFromFormat(t *testing.T) {
	info := infoFromFormat(&goaudio.Format{NumChannels: 2, SampleRate: 44100}, 24)
	assert.Equal(t, &Info{SampleRate: 44100, Channels: 2, BitDepth: 24}, info)

	// a missing format fails the frame size check in DecodeInfo
	assert.Equal(t, &Info{BitDepth: 16}, infoFromFormat(nil, 16))
}

func TestDecodeInfoRejectsGarbage(t *testing.T) {
	_, err := DecodeInfo(strings.NewReader("definitely not a riff file, just text"))

	assert.ErrorIs(t, err, ErrNotWAV)
}

func TestReadWAVInfoMissingFile(t *testing.T) {
	_, err := ReadWAVInfo(filepath.Join(t.TempDir(), "missing.wav"))

	assert.Error(t, err)
}
