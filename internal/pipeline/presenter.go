package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const (
	EventAcquisitionFailed EventKind = "acquisitionFailed"
	EventCommandRejected   EventKind = "commandRejected"
	EventPresentFailed     EventKind = "presentFailed"
)

// Emission is everything a tick hands to the presentation side
type Emission struct {
	Sequence  uint64               `json:"sequence"`
	Timestamp time.Time            `json:"timestamp"`
	Frame     *spectrum.Frame      `json:"frame"`
	Holds     spectrum.HoldBuffers `json:"holds"`
	Peak      *spectrum.PeakRecord `json:"peak,omitempty"`
	HeldPeak  *spectrum.PeakRecord `json:"heldPeak,omitempty"`
}

// EventKind classifies a non-fatal pipeline event
type EventKind string

// Event is a transient status report, e.g. a skipped tick
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Err       error
}

// Presenter receives one emission per non-skipped tick and status events
type Presenter interface {
	Present(ctx context.Context, e *Emission) error
	Report(ctx context.Context, ev Event)
}

// Presenters fans emissions and events out to several presenters
type Presenters []Presenter

func (p Presenters) Present(ctx context.Context, e *Emission) error {
	var errs []error
	for _, presenter := range p {
		if err := presenter.Present(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p Presenters) Report(ctx context.Context, ev Event) {
	for _, presenter := range p {
		presenter.Report(ctx, ev)
	}
}
