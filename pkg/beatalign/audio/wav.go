package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when the input is not a readable PCM WAV file.
var ErrNotWAV = errors.New("not a valid WAV file")

// Info is the header information of a backing track.
type Info struct {
	Filename    string  `json:"filename,omitempty"`
	DurationSec float64 `json:"duration"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
	BitDepth    int     `json:"bit_depth"`
}

// ReadWAVInfo opens path and reads its WAV header. Samples are not decoded.
func ReadWAVInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	info, err := DecodeInfo(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	info.Filename = filepath.Base(path)
	return info, nil
}

// DecodeInfo reads the WAV header from r and measures the PCM chunk.
func DecodeInfo(r io.ReadSeeker) (*Info, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seeking PCM data: %w", err)
	}

	info := infoFromFormat(d.Format(), int(d.BitDepth))
	frameSize := info.Channels * info.BitDepth / 8
	if info.SampleRate <= 0 || frameSize <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, %d channels, %d bits", ErrNotWAV, info.SampleRate, info.Channels, info.BitDepth)
	}

	frames := d.PCMLen() / int64(frameSize)
	info.DurationSec = float64(frames) / float64(info.SampleRate)
	return info, nil
}

func infoFromFormat(f *goaudio.Format, bitDepth int) *Info {
	if f == nil {
		return &Info{BitDepth: bitDepth}
	}
	return &Info{SampleRate: f.SampleRate, Channels: f.NumChannels, BitDepth: bitDepth}
}
