package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

// logPresenter logs peaks and pipeline events. It stops the run once a
// block source reaches the end of its stream.
type logPresenter struct {
	logger      *slog.Logger
	endOfStream func()

	lastPeak float64
}

func (p *logPresenter) Present(_ context.Context, e *pipeline.Emission) error {
	if e.HeldPeak != nil && e.HeldPeak.Frequency != p.lastPeak {
		p.lastPeak = e.HeldPeak.Frequency

		attrs := []any{
			slog.String("frequency", spectrum.FormatHz(e.HeldPeak.Frequency)),
			slog.Float64("power", e.HeldPeak.Power),
		}
		for _, bw := range e.HeldPeak.Bandwidths {
			attrs = append(attrs, slog.String(bandwidthKey(bw.DropDB), spectrum.FormatHz(bw.Width())))
		}
		p.logger.Info("held peak moved", attrs...)
	}

	if e.Peak != nil {
		p.logger.Debug("live peak",
			slog.Uint64("sequence", e.Sequence),
			slog.String("frequency", spectrum.FormatHz(e.Peak.Frequency)),
			slog.Float64("power", e.Peak.Power))
	}

	return nil
}

func (p *logPresenter) Report(_ context.Context, ev pipeline.Event) {
	if ev.Kind == pipeline.EventAcquisitionFailed && (errors.Is(ev.Err, io.EOF) || errors.Is(ev.Err, io.ErrUnexpectedEOF)) {
		p.logger.Info("end of sample stream")
		if p.endOfStream != nil {
			p.endOfStream()
		}
		return
	}

	// A sweep tool needs a moment to deliver its first sweep
	level := slog.LevelWarn
	if ev.Kind == pipeline.EventAcquisitionFailed {
		level = slog.LevelDebug
	}
	p.logger.Log(context.Background(), level, "pipeline event", slog.String("kind", string(ev.Kind)), slog.Any("error", ev.Err))
}

func bandwidthKey(drop float64) string {
	return "bw" + strconv.FormatFloat(drop, 'f', -1, 64) + "dB"
}
