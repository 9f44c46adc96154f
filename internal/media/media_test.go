package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, dir string, channels, rate, frames int) string {
	t.Helper()
	path := filepath.Join(dir, "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeWAV(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 2, 8000, 16000)
	info, err := ProbeWAV(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.Channels != 2 || info.SampleRate != 8000 || info.BitDepth != 16 {
		t.Fatalf("unexpected info %+v", info)
	}
	// the header size includes the format chunk, so allow a little slack
	if info.Duration < 2*time.Second || info.Duration > 2*time.Second+10*time.Millisecond {
		t.Fatalf("duration %v", info.Duration)
	}
}

func TestProbeRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ProbeWAV(path); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestDescriptorChecksChannel(t *testing.T) {
	dir := t.TempDir()
	mono := writeWAV(t, dir, 1, 16000, 160)
	if d, err := Descriptor(mono, 0); err != nil || d.Channel != 1 {
		t.Fatalf("mono channel 1: %+v %v", d, err)
	}
	if _, err := Descriptor(mono, 2); err == nil {
		t.Fatalf("expected error for missing right channel")
	}
	if _, err := Descriptor(mono, 3); err == nil {
		t.Fatalf("expected error for channel 3")
	}
}

func TestDescriptorVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if _, err := Descriptor(path, 1); err == nil {
		t.Fatalf("expected missing file error")
	}
	if err := os.WriteFile(path, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if d, err := Descriptor(path, 2); err != nil || d.MediaFilePath != path {
		t.Fatalf("video descriptor %+v %v", d, err)
	}
}
