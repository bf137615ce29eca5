package pipeline

import (
	"fmt"
	"slices"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

// DefaultSampleCount is the block size requested from block sources
const DefaultSampleCount = 2048

// Settings is the pipeline configuration record. It is copied into the
// orchestrator at construction and afterwards only changed through commands.
type Settings struct {
	MaxHold        bool
	MinHold        bool
	Average        bool
	PeakSearch     bool
	HeldPeakSearch bool // Needs MaxHold to produce anything
	DropLevels     []float64

	Window      spectrum.WindowFunction
	SampleCount int // Samples requested per block read
}

// DefaultSettings returns live-trace-only settings with the canonical drop levels
func DefaultSettings() Settings {
	return Settings{
		DropLevels:  slices.Clone(spectrum.DefaultDropLevels),
		Window:      spectrum.WindowRectangular,
		SampleCount: DefaultSampleCount,
	}
}

// Validate checks the settings
func (s *Settings) Validate() error {
	if s.SampleCount <= 0 {
		return fmt.Errorf("pipeline.Settings: sample count must be positive: %d given", s.SampleCount)
	}
	if !s.Window.Valid() {
		return fmt.Errorf("pipeline.Settings: unknown window function: %s", s.Window)
	}
	if err := spectrum.ValidateDropLevels(s.DropLevels); err != nil {
		return fmt.Errorf("pipeline.Settings: %w", err)
	}
	return nil
}

func (s *Settings) holdEnabled(kind spectrum.HoldKind) *bool {
	switch kind {
	case spectrum.MaxHold:
		return &s.MaxHold
	case spectrum.MinHold:
		return &s.MinHold
	default:
		return &s.Average
	}
}
