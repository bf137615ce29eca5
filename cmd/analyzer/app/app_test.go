package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/radio-spectrum/internal/storage"
)

func TestRun_ToneRecording(t *testing.T) {
	dir := t.TempDir()

	config, err := ParseConfig([]byte(`
settings:
  tickInterval: 10ms
  sampleCount: 256
source:
  type: tone
  tone:
    sampleRate: 2.4M
    centreFrequency: 433.92M
    offset: 300k
    noise: 0.001
hold:
  max: true
peak:
  live: true
  held: true
server:
  listen: "127.0.0.1:0"
`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	config.Storage = StorageConfig{Enabled: true, DataDirectory: dir}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err = Run(ctx, config, logger); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "spectrum_*.sqlite"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one recording, got %v (%v)", files, err)
	}

	store := storage.NewSqliteStore(files[0])
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SourceType != "tone" {
		t.Fatalf("Expected one tone session, got %+v", sessions)
	}

	peaks, err := store.Peaks(context.Background(), sessions[0].ID, storage.WithPeakKind(storage.PeakHeld), storage.WithLimit(1))
	if err != nil {
		t.Fatalf("Failed to read peaks: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("Expected a held peak, got %d", len(peaks))
	}

	// 256 bins over 2.4 MHz puts the tone within one 9.375 kHz bin of 434.22 MHz
	if got := peaks[0].Frequency; got < 434.21e6 || got > 434.23e6 {
		t.Errorf("Expected held peak near 434.22 MHz, got %f", got)
	}
}

func TestRun_IQEndOfStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.iq")
	samples := make([]byte, 2*256*3) // Three blocks of 256 samples
	for i := range samples {
		samples[i] = 128
	}
	if err := os.WriteFile(path, samples, 0o600); err != nil {
		t.Fatalf("Failed to write capture: %v", err)
	}

	config, err := ParseConfig([]byte(`
settings:
  tickInterval: 5ms
  sampleCount: 256
source:
  type: iq
  iq:
    path: ` + path + `
    sampleRate: 2M
    centreFrequency: 433.92M
server:
  listen: ""
`))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err = Run(ctx, config, logger); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ctx.Err() != nil {
		t.Error("Expected Run to stop at the end of the stream")
	}
}

func TestRun_MissingIQFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.iq")

	config, err := ParseConfig([]byte("source:\n  type: iq\n  iq:\n    path: " + path + "\n    sampleRate: 2M\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err = Run(context.Background(), config, logger); err == nil {
		t.Error("Expected error for missing IQ file")
	}
}
