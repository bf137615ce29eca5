package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

type fakeWriter struct {
	stored []*pipeline.Emission
	err    error
}

func (w *fakeWriter) StoreEmission(_ context.Context, _ int64, e *pipeline.Emission) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.stored = append(w.stored, e)
	return int64(len(w.stored)), nil
}

func TestRecorder_Present(t *testing.T) {
	frame := &spectrum.Frame{Frequencies: []float64{1, 2}, Power: []float64{-1, -2}}
	withPeak := &pipeline.Emission{Sequence: 1, Frame: frame, Peak: &spectrum.PeakRecord{}}
	withoutPeak := &pipeline.Emission{Sequence: 2, Frame: frame}

	tests := []struct {
		name    string
		options []func(*Recorder)
		want    int
	}{
		{"peaks only", nil, 1},
		{"all frames", []func(*Recorder){WithAllFrames()}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			r := NewRecorder(w, 7, tt.options...)

			for _, e := range []*pipeline.Emission{withPeak, withoutPeak} {
				if err := r.Present(context.Background(), e); err != nil {
					t.Fatalf("Present failed: %v", err)
				}
			}
			if len(w.stored) != tt.want {
				t.Errorf("Expected %d stored emissions, got %d", tt.want, len(w.stored))
			}
		})
	}
}

func TestRecorder_PresentError(t *testing.T) {
	cause := errors.New("disk full")
	r := NewRecorder(&fakeWriter{err: cause}, 7)

	e := &pipeline.Emission{Frame: &spectrum.Frame{}, Peak: &spectrum.PeakRecord{}}
	if err := r.Present(context.Background(), e); !errors.Is(err, cause) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}
