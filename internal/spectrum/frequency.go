package spectrum

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

const (
	// SpanKeepStart moves the stop frequency when the span changes
	SpanKeepStart SpanMode = "start"

	// SpanKeepCentre grows or shrinks the range symmetrically around the centre
	SpanKeepCentre SpanMode = "centre"
)

// SpanMode controls which edge of the range stays fixed on SetSpan
type SpanMode string

// InvalidRangeError is returned when a setter would produce an empty or inverted range.
// The range it was returned for keeps its previous state.
type InvalidRangeError struct {
	Start float64
	Stop  float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid frequency range: start=%f, stop=%f", e.Start, e.Stop)
}

// FrequencyRange holds start/stop frequencies in Hz together with the number of
// frequency bins the range is divided into. Derived values (span, centre,
// resolution bandwidth) are always consistent with start and stop.
type FrequencyRange struct {
	start, stop float64
	binCount    int
	spanMode    SpanMode
}

// WithSpanMode sets how SetSpan anchors the range
func WithSpanMode(mode SpanMode) func(*FrequencyRange) {
	return func(r *FrequencyRange) {
		r.spanMode = mode
	}
}

// WithBinCount sets the initial number of frequency bins
func WithBinCount(n int) func(*FrequencyRange) {
	return func(r *FrequencyRange) {
		r.binCount = n
	}
}

// NewFrequencyRange creates a new range between start and stop (Hz)
func NewFrequencyRange(start, stop float64, options ...func(*FrequencyRange)) (*FrequencyRange, error) {
	r := FrequencyRange{spanMode: SpanKeepStart}
	if err := r.Set(start, stop); err != nil {
		return nil, err
	}

	for _, option := range options {
		option(&r)
	}

	if r.binCount < 0 {
		return nil, fmt.Errorf("invalid bin count: %d", r.binCount)
	}

	return &r, nil
}

// Start returns the lower edge of the range in Hz
func (r *FrequencyRange) Start() float64 { return r.start }

// Stop returns the upper edge of the range in Hz
func (r *FrequencyRange) Stop() float64 { return r.stop }

// Span returns stop - start
func (r *FrequencyRange) Span() float64 { return r.stop - r.start }

// Centre returns the midpoint of the range
func (r *FrequencyRange) Centre() float64 { return (r.start + r.stop) / 2 }

// BinCount returns the number of frequency bins currently configured
func (r *FrequencyRange) BinCount() int { return r.binCount }

// SpanMode returns how SetSpan anchors the range
func (r *FrequencyRange) SpanMode() SpanMode { return r.spanMode }

// ResBW returns the resolution bandwidth, span / bin count.
// It is zero while no bins are configured.
func (r *FrequencyRange) ResBW() float64 {
	if r.binCount == 0 {
		return 0
	}
	return r.Span() / float64(r.binCount)
}

// Contains reports whether f lies within [start, stop]
func (r *FrequencyRange) Contains(f float64) bool {
	return f >= r.start && f <= r.stop
}

// Set replaces both edges of the range at once
func (r *FrequencyRange) Set(start, stop float64) error {
	if !validRange(start, stop) {
		return &InvalidRangeError{Start: start, Stop: stop}
	}

	r.start, r.stop = start, stop
	return nil
}

// SetStart moves the lower edge, keeping stop fixed
func (r *FrequencyRange) SetStart(f float64) error {
	return r.Set(f, r.stop)
}

// SetStop moves the upper edge, keeping start fixed
func (r *FrequencyRange) SetStop(f float64) error {
	return r.Set(r.start, f)
}

// SetSpan changes the width of the range. Depending on the span mode either
// start or the centre stays where it is.
func (r *FrequencyRange) SetSpan(s float64) error {
	if r.spanMode == SpanKeepCentre {
		c := r.Centre()
		return r.Set(c-s/2, c+s/2)
	}
	return r.Set(r.start, r.start+s)
}

// SetCentre shifts the range so it is centred on f, preserving the span
func (r *FrequencyRange) SetCentre(f float64) error {
	half := r.Span() / 2
	return r.Set(f-half, f+half)
}

// SetBinCount changes the number of bins, and so the resolution bandwidth,
// without touching start or stop
func (r *FrequencyRange) SetBinCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid bin count: %d", n)
	}

	r.binCount = n
	return nil
}

func (r *FrequencyRange) String() string {
	return fmt.Sprintf("%s - %s (span %s, rbw %s)",
		FormatHz(r.start), FormatHz(r.stop), FormatHz(r.Span()), FormatHz(r.ResBW()))
}

// FormatHz renders a frequency with an SI prefix, e.g. 2.45 GHz
func FormatHz(hz float64) string {
	return humanize.SIWithDigits(hz, 3, "Hz")
}

func validRange(start, stop float64) bool {
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return false
	}
	return start < stop && stop-start > 0
}
