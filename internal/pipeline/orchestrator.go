package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const commandQueueSize = 32

var (
	// ErrTickInProgress is returned when a tick is requested while another one is still running
	ErrTickInProgress = errors.New("tick in progress")

	// ErrCommandQueueFull is returned by Submit when the Run loop is not keeping up
	ErrCommandQueueFull = errors.New("command queue full")
)

// WithLogger sets the logger for the orchestrator
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger.With(slog.String("source", o.source.Kind().String()))
	}
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *Metrics) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock replaces the clock used to timestamp emissions
func WithClock(now func() time.Time) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator drives the spectrum pipeline one tick at a time: acquire a
// block or sweep, turn it into a frame, fold it into the hold buffers,
// measure peaks, and emit the result to the presenter.
//
// All pipeline state is owned by the goroutine executing Tick (or Run). Other
// goroutines change the configuration through Submit.
type Orchestrator struct {
	source    Source
	frequency *spectrum.FrequencyRange
	presenter Presenter
	settings  Settings

	transformer *spectrum.Transformer
	holds       *spectrum.HoldAccumulator
	analyzer    *spectrum.PeakAnalyzer

	layout   spectrum.Layout
	sequence uint64
	paused   bool

	busy     atomic.Bool
	commands chan Command

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(source Source, frequency *spectrum.FrequencyRange, presenter Presenter, settings Settings, options ...func(*Orchestrator)) (*Orchestrator, error) {
	if err := source.validate(); err != nil {
		return nil, err
	}
	if frequency == nil {
		return nil, errors.New("frequency range is required")
	}
	if presenter == nil {
		return nil, errors.New("presenter is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	transformer, err := spectrum.NewTransformer(spectrum.WithWindow(settings.Window))
	if err != nil {
		return nil, fmt.Errorf("creating transformer: %w", err)
	}

	analyzer, err := spectrum.NewPeakAnalyzer(settings.DropLevels)
	if err != nil {
		return nil, fmt.Errorf("creating peak analyzer: %w", err)
	}

	o := Orchestrator{
		source:      source,
		frequency:   frequency,
		presenter:   presenter,
		settings:    settings,
		transformer: transformer,
		holds:       spectrum.NewHoldAccumulator(),
		analyzer:    analyzer,
		commands:    make(chan Command, commandQueueSize),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		now:         time.Now,
	}
	o.settings.DropLevels = slices.Clone(settings.DropLevels)

	for _, kind := range spectrum.HoldKinds {
		if *o.settings.holdEnabled(kind) {
			o.holds.Enable(kind)
		}
	}

	for _, option := range options {
		option(&o)
	}

	return &o, nil
}

// Settings returns a copy of the current configuration
func (o *Orchestrator) Settings() Settings {
	s := o.settings
	s.DropLevels = slices.Clone(s.DropLevels)
	return s
}

// FrequencyRange returns the range the pipeline works on. It must only be
// changed through commands.
func (o *Orchestrator) FrequencyRange() *spectrum.FrequencyRange {
	return o.frequency
}

// Paused reports whether ticking is suspended
func (o *Orchestrator) Paused() bool {
	return o.paused
}

// Apply applies a command right away. It must be called from the goroutine
// that runs ticks; use Submit from anywhere else.
func (o *Orchestrator) Apply(cmd Command) error {
	if err := cmd.apply(o); err != nil {
		o.metrics.command(false)
		return fmt.Errorf("applying %T: %w", cmd, err)
	}

	o.metrics.command(true)
	o.logger.Debug("command applied", slog.String("command", fmt.Sprintf("%T", cmd)))
	return nil
}

// Submit queues a command for the Run loop. It never blocks.
func (o *Orchestrator) Submit(cmd Command) error {
	select {
	case o.commands <- cmd:
		return nil
	default:
		o.metrics.command(false)
		return ErrCommandQueueFull
	}
}

// Run executes a tick every interval until the context is cancelled. Ticks
// that come due while one is still running are dropped by the ticker.
// Queued commands are applied between ticks.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid tick interval: %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.logger.Info("pipeline started", slog.Duration("interval", interval))
	defer o.logger.Info("pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd := <-o.commands:
			o.applyQueued(ctx, cmd)

		case <-ticker.C:
			o.drainCommands(ctx)
			if err := o.Tick(ctx); err != nil {
				o.logger.Debug("tick skipped", slog.String("reason", err.Error()))
			}
		}
	}
}

// Tick runs one full pipeline pass. A failed or empty acquisition skips the
// tick without touching any state, reports the failure to the presenter and
// returns an *AcquisitionError.
func (o *Orchestrator) Tick(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		o.metrics.tick(outcomeDropped)
		return ErrTickInProgress
	}
	defer o.busy.Store(false)

	if o.paused {
		o.metrics.tick(outcomePaused)
		return nil
	}

	started := time.Now()

	frame, err := o.acquire(ctx)
	if err != nil {
		o.metrics.tick(outcomeSkipped)
		o.presenter.Report(ctx, Event{Kind: EventAcquisitionFailed, Timestamp: o.now(), Err: err})
		return err
	}

	if layout := frame.Layout(); layout != o.layout {
		if !o.layout.IsZero() {
			o.logger.Debug("bin layout changed, reseeding holds",
				slog.Int("bins", layout.Bins),
				slog.String("first", spectrum.FormatHz(layout.First)),
				slog.String("last", spectrum.FormatHz(layout.Last)))
		}
		o.holds.Invalidate()
		o.layout = layout
	}

	o.holds.Accumulate(frame)

	o.sequence++
	e := Emission{
		Sequence:  o.sequence,
		Timestamp: o.now(),
		Frame:     frame,
		Holds:     o.holds.Buffers(),
	}

	if o.settings.PeakSearch {
		if peak, ok := o.analyzer.LivePeak(frame); ok {
			e.Peak = &peak
		}
	}

	if o.settings.HeldPeakSearch && o.holds.Enabled(spectrum.MaxHold) {
		if peak, ok := o.analyzer.HeldPeak(frame, o.holds.Buffer(spectrum.MaxHold)); ok {
			e.HeldPeak = &peak
		}
	}

	if err = o.presenter.Present(ctx, &e); err != nil {
		o.logger.Warn(fmt.Sprintf("presenting frame: %s", err.Error()), slog.Uint64("sequence", e.Sequence))
		o.presenter.Report(ctx, Event{Kind: EventPresentFailed, Timestamp: o.now(), Err: err})
	}

	o.metrics.emission(&e, time.Since(started).Seconds())
	return nil
}

func (o *Orchestrator) acquire(ctx context.Context) (*spectrum.Frame, error) {
	switch o.source.kind {
	case SourceBlock:
		return o.acquireBlock(ctx, o.source.block)
	case SourceSweep:
		return o.acquireSweep(ctx, o.source.sweep)
	default:
		return nil, &AcquisitionError{Kind: o.source.kind, Err: errors.New("unknown source kind")}
	}
}

func (o *Orchestrator) acquireBlock(ctx context.Context, src BlockSampleSource) (*spectrum.Frame, error) {
	block, err := src.ReadSamples(ctx, o.settings.SampleCount)
	if err != nil {
		return nil, &AcquisitionError{Kind: SourceBlock, Err: err}
	}
	if block.Len() == 0 {
		return nil, &AcquisitionError{Kind: SourceBlock, Err: ErrEmptyAcquisition}
	}

	acq := spectrum.Acquisition{SampleRate: src.SampleRate()}
	if block.Complex() {
		acq.CentreFreq = src.CentreFreq()
	}

	frame, err := o.transformer.Transform(block, acq)
	if err != nil {
		return nil, &AcquisitionError{Kind: SourceBlock, Err: err}
	}

	// The observed range is [first bin, last bin + one bin width)
	n := frame.Len()
	start, stop := frame.Frequencies[0], acq.CentreFreq+acq.SampleRate/2
	if !block.Complex() {
		stop = acq.SampleRate / 2
	}
	if n > 1 {
		stop = frame.Frequencies[n-1] + (frame.Frequencies[1] - frame.Frequencies[0])
	}
	if err = o.frequency.Set(start, stop); err != nil {
		return nil, &AcquisitionError{Kind: SourceBlock, Err: err}
	}
	_ = o.frequency.SetBinCount(n)

	return frame, nil
}

func (o *Orchestrator) acquireSweep(ctx context.Context, src LeveledSweepSource) (*spectrum.Frame, error) {
	levels, err := src.Data(ctx)
	if err != nil {
		return nil, &AcquisitionError{Kind: SourceSweep, Err: err}
	}
	if len(levels) == 0 {
		return nil, &AcquisitionError{Kind: SourceSweep, Err: ErrEmptyAcquisition}
	}

	// The levels themselves decide the bin count, a stale point count would
	// otherwise break the parallel arrays
	if points := src.NumberOfPoints(); points != len(levels) {
		o.logger.Debug("sweep point count differs from data", slog.Int("points", points), slog.Int("levels", len(levels)))
	}

	n := len(levels)
	frame := spectrum.Frame{
		Frequencies: make([]float64, n),
		Power:       slices.Clone(levels),
	}
	if n == 1 {
		frame.Frequencies[0] = o.frequency.Start()
	} else {
		floats.Span(frame.Frequencies, o.frequency.Start(), o.frequency.Stop())
	}
	_ = o.frequency.SetBinCount(n)

	return &frame, nil
}

func (o *Orchestrator) setHold(kind spectrum.HoldKind, enabled bool) error {
	if enabled {
		o.holds.Enable(kind)
	} else {
		o.holds.Disable(kind)
	}
	*o.settings.holdEnabled(kind) = enabled
	return nil
}

func (o *Orchestrator) applyQueued(ctx context.Context, cmd Command) {
	if err := o.Apply(cmd); err != nil {
		o.logger.Warn(err.Error())
		o.presenter.Report(ctx, Event{Kind: EventCommandRejected, Timestamp: o.now(), Err: err})
	}
}

func (o *Orchestrator) drainCommands(ctx context.Context) {
	for {
		select {
		case cmd := <-o.commands:
			o.applyQueued(ctx, cmd)
		default:
			return
		}
	}
}
