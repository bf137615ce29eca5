package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const (
	SourceBlock SourceKind = iota + 1
	SourceSweep
)

// ErrEmptyAcquisition is returned when a source delivers no samples or levels
var ErrEmptyAcquisition = errors.New("empty acquisition")

// AcquisitionError wraps a failed or empty read from a source. It never stops
// the pipeline: the tick is skipped and the next one retries.
type AcquisitionError struct {
	Kind SourceKind
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition from %s source failed: %s", e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// SourceKind tells which collaborator variant a Source wraps
type SourceKind int

func (k SourceKind) String() string {
	switch k {
	case SourceBlock:
		return "block"
	case SourceSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// BlockSampleSource delivers raw sample blocks that still need a DFT
type BlockSampleSource interface {
	SampleRate() float64 // Samples per second
	CentreFreq() float64 // Tuned frequency in Hz, meaningless for real-valued sources
	ReadSamples(ctx context.Context, count int) (spectrum.SampleBlock, error)
}

// LeveledSweepSource delivers power levels measured by the hardware itself.
// The frequency axis is built from the pipeline's frequency range.
type LeveledSweepSource interface {
	Data(ctx context.Context) ([]float64, error)
	NumberOfPoints() int
}

// Source is one of the two acquisition variants. The zero value is invalid,
// use FromBlockSource or FromSweepSource.
type Source struct {
	kind  SourceKind
	block BlockSampleSource
	sweep LeveledSweepSource
}

// FromBlockSource wraps a raw sample source
func FromBlockSource(s BlockSampleSource) Source {
	return Source{kind: SourceBlock, block: s}
}

// FromSweepSource wraps a leveled sweep source
func FromSweepSource(s LeveledSweepSource) Source {
	return Source{kind: SourceSweep, sweep: s}
}

// Kind returns the wrapped variant
func (s Source) Kind() SourceKind {
	return s.kind
}

func (s Source) validate() error {
	switch {
	case s.kind == SourceBlock && s.block != nil:
		return nil
	case s.kind == SourceSweep && s.sweep != nil:
		return nil
	default:
		return errors.New("source is not initialised")
	}
}
