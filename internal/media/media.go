// Package media inspects recognizer input files.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"annorec/internal/segment"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a file does not carry a readable WAV header.
var ErrNotWAV = errors.New("not a wav file")

// Info is what a WAV header tells about a file.
type Info struct {
	Path       string
	Channels   int
	SampleRate int
	BitDepth   int
	Duration   time.Duration
}

// IsWAV reports whether path has a .wav extension.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// ProbeWAV reads the header of a WAV file.
func ProbeWAV(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	dur, err := dec.Duration()
	if err != nil {
		return nil, fmt.Errorf("%s: duration: %w", path, err)
	}
	return &Info{
		Path:       path,
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
		Duration:   dur,
	}, nil
}

// Descriptor builds a MediaDescriptor for path. WAV files are probed and the
// channel must exist in the file; other media (video) is only checked for
// existence, since channels mean nothing there.
func Descriptor(path string, channel int) (segment.MediaDescriptor, error) {
	if channel == 0 {
		channel = 1
	}
	d := segment.MediaDescriptor{MediaFilePath: path, Channel: channel}
	if channel != 1 && channel != 2 {
		return d, fmt.Errorf("%s: channel %d must be 1 or 2", path, channel)
	}
	if !IsWAV(path) {
		if _, err := os.Stat(path); err != nil {
			return d, err
		}
		return d, nil
	}
	info, err := ProbeWAV(path)
	if err != nil {
		return d, err
	}
	if channel > info.Channels {
		return d, fmt.Errorf("%s: channel %d requested but file has %d", path, channel, info.Channels)
	}
	return d, nil
}
