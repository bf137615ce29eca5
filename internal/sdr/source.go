package sdr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const resultsBufferSize = 64

// ErrNoSweep is returned by Data until the first sweep has been completed
var ErrNoSweep = errors.New("no complete sweep yet")

// WithSweepLogger sets the logger for the sweep source
func WithSweepLogger(logger *slog.Logger) func(*SweepSource) {
	return func(s *SweepSource) {
		s.logger = logger
	}
}

// WithPowerFloor replaces the level used for invalid readings
func WithPowerFloor(floor float64) func(*SweepSource) {
	return func(s *SweepSource) {
		s.assembler = NewSweepAssembler(floor)
	}
}

// SweepSource turns the chunk stream of a sweeping Device into complete
// sweeps. The device runs in goroutines owned by the source; Data hands the
// most recent complete sweep to the caller.
type SweepSource struct {
	device    *Device
	assembler *SweepAssembler

	mu     sync.RWMutex
	latest *Sweep

	logger *slog.Logger
}

// NewSweepSource creates a source over device. device may be nil when chunks
// are fed through Consume.
func NewSweepSource(device *Device, options ...func(*SweepSource)) *SweepSource {
	s := SweepSource{
		device:    device,
		assembler: NewSweepAssembler(PowerFloor),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Start launches the device and assembles its output until ctx is cancelled
// or the device stops. The returned channel receives the device error, if
// any, and is closed afterwards.
func (s *SweepSource) Start(ctx context.Context) (<-chan error, error) {
	if s.device == nil {
		return nil, errors.New("sweep source has no device")
	}

	results := make(chan *SweepResult, resultsBufferSize)
	stopped, err := s.device.BeginSampling(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("starting device: %w", err)
	}

	done := make(chan error, 1)
	go s.forward(results, stopped, done)

	return done, nil
}

// forward assembles chunks until the device stops, then assembles whatever
// is still buffered in results before passing the device error on and
// closing done
func (s *SweepSource) forward(results <-chan *SweepResult, stopped <-chan error, done chan<- error) {
	defer close(done)

	for {
		select {
		case chunk := <-results:
			s.add(chunk)

		case err, ok := <-stopped:
			s.drain(results)
			if ok && err != nil {
				done <- err
			}
			return
		}
	}
}

// drain assembles the chunks already buffered in results without blocking
func (s *SweepSource) drain(results <-chan *SweepResult) {
	for {
		select {
		case chunk, ok := <-results:
			if !ok {
				return
			}
			s.add(chunk)
		default:
			return
		}
	}
}

// Stop terminates the device
func (s *SweepSource) Stop() {
	if s.device != nil {
		s.device.Stop()
	}
}

// Consume assembles chunks from results until the channel is closed or ctx
// is cancelled
func (s *SweepSource) Consume(ctx context.Context, results <-chan *SweepResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-results:
			if !ok {
				return
			}
			s.add(chunk)
		}
	}
}

// Data returns a copy of the levels of the most recent complete sweep
func (s *SweepSource) Data(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNoSweep
	}
	return slices.Clone(s.latest.Levels), nil
}

// NumberOfPoints returns the bin count of the most recent complete sweep
func (s *SweepSource) NumberOfPoints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return 0
	}
	return len(s.latest.Levels)
}

// Latest returns the most recent complete sweep, nil before the first one
func (s *SweepSource) Latest() *Sweep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *SweepSource) add(chunk *SweepResult) {
	sweep, err := s.assembler.Add(chunk)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("dropping chunk: %s", err.Error()))
		return
	}
	if sweep == nil {
		return
	}

	s.mu.Lock()
	s.latest = sweep
	s.mu.Unlock()

	s.logger.Debug("sweep complete",
		slog.Int("bins", len(sweep.Levels)),
		slog.String("start", spectrum.FormatHz(sweep.StartFrequency)),
		slog.String("end", spectrum.FormatHz(sweep.EndFrequency)))
}
