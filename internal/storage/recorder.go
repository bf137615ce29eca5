package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
)

// EmissionWriter is the part of Store the Recorder needs
type EmissionWriter interface {
	StoreEmission(ctx context.Context, sessionID int64, e *pipeline.Emission) (int64, error)
}

// WithRecorderLogger sets the logger for the recorder
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.Int64("sessionID", r.sessionID))
	}
}

// WithAllFrames records frames that carry no peak as well
func WithAllFrames() func(*Recorder) {
	return func(r *Recorder) {
		r.allFrames = true
	}
}

// Recorder is a pipeline presenter writing emissions into a recording session.
// By default only emissions with a live or held peak are stored.
type Recorder struct {
	store     EmissionWriter
	sessionID int64
	allFrames bool

	logger *slog.Logger
}

// NewRecorder creates a recorder writing into an existing session
func NewRecorder(store EmissionWriter, sessionID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:     store,
		sessionID: sessionID,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Present stores the emission
func (r *Recorder) Present(ctx context.Context, e *pipeline.Emission) error {
	if !r.allFrames && e.Peak == nil && e.HeldPeak == nil {
		return nil
	}

	if _, err := r.store.StoreEmission(ctx, r.sessionID, e); err != nil {
		return fmt.Errorf("recording emission %d: %w", e.Sequence, err)
	}
	return nil
}

// Report logs pipeline events, they are not recorded
func (r *Recorder) Report(_ context.Context, ev pipeline.Event) {
	r.logger.Debug("pipeline event", slog.String("kind", string(ev.Kind)), slog.Any("error", ev.Err))
}
