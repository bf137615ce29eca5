package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const (
	// DBScale converts magnitudes to decibels: dB = DBScale * log10(|X|)
	DBScale = 20.0

	// MagnitudeFloor keeps log10 away from zero for empty bins
	MagnitudeFloor = 1e-12

	WindowRectangular WindowFunction = "rectangular"
	WindowHamming     WindowFunction = "hamming"
	WindowHann        WindowFunction = "hann"
	WindowBartlett    WindowFunction = "bartlett"
	WindowBlackman    WindowFunction = "blackman"
	WindowFlatTop     WindowFunction = "flattop"
)

var (
	// ErrEmptyBlock is returned when a transform is requested for a block without samples
	ErrEmptyBlock = errors.New("empty sample block")

	windowFunctions = map[WindowFunction]func(int) []float64{
		WindowRectangular: window.Rectangular,
		WindowHamming:     window.Hamming,
		WindowHann:        window.Hann,
		WindowBartlett:    window.Bartlett,
		WindowBlackman:    window.Blackman,
		WindowFlatTop:     window.FlatTop,
	}
)

// WindowFunction names a tapering window applied to a block before the DFT
type WindowFunction string

// Valid reports whether the window function is known
func (w WindowFunction) Valid() bool {
	_, ok := windowFunctions[w]
	return ok || w == ""
}

// Acquisition describes how a sample block was captured
type Acquisition struct {
	SampleRate float64 // Samples per second
	CentreFreq float64 // Tuned frequency in Hz, ignored for real-valued blocks
}

// WithWindow sets the window function applied before the DFT
func WithWindow(w WindowFunction) func(*Transformer) {
	return func(t *Transformer) {
		t.window = w
	}
}

// Transformer turns sample blocks into power frames. It caches FFT plans and
// window coefficients per block length and is not safe for concurrent use.
type Transformer struct {
	window WindowFunction

	cmplxFFT *fourier.CmplxFFT
	realFFT  *fourier.FFT
	coeffs   []float64

	scratchIQ   []complex128
	scratchReal []float64
	spectrum    []complex128
}

// NewTransformer creates a Transformer, rectangular window by default
func NewTransformer(options ...func(*Transformer)) (*Transformer, error) {
	t := Transformer{window: WindowRectangular}

	for _, option := range options {
		option(&t)
	}

	if !t.window.Valid() {
		return nil, fmt.Errorf("unknown window function: %s", t.window)
	}
	if t.window == "" {
		t.window = WindowRectangular
	}

	return &t, nil
}

// Transform computes the power spectrum of a block.
//
// IQ blocks produce all N bins with the zero-frequency component moved to the
// middle, so the axis runs from centre - rate/2 to centre + rate/2 - rate/N.
// Real blocks produce the first N/2 (non-negative) bins starting at 0 Hz.
func (t *Transformer) Transform(block SampleBlock, acq Acquisition) (*Frame, error) {
	n := block.Len()
	if n == 0 {
		return nil, ErrEmptyBlock
	}
	if acq.SampleRate <= 0 || math.IsNaN(acq.SampleRate) || math.IsInf(acq.SampleRate, 0) {
		return nil, fmt.Errorf("invalid sample rate: %f", acq.SampleRate)
	}

	if block.Complex() {
		return t.transformIQ(block.IQ, acq), nil
	}

	if n < 2 {
		return nil, fmt.Errorf("real block too short: %d samples", n)
	}
	return t.transformReal(block.Real, acq), nil
}

func (t *Transformer) transformIQ(iq []complex128, acq Acquisition) *Frame {
	n := len(iq)
	if t.cmplxFFT == nil || t.cmplxFFT.Len() != n {
		t.cmplxFFT = fourier.NewCmplxFFT(n)
	}

	coeffs := t.windowCoefficients(n)
	t.scratchIQ = resize(t.scratchIQ, n)
	for i, v := range iq {
		t.scratchIQ[i] = v * complex(coeffs[i], 0)
	}

	t.spectrum = t.cmplxFFT.Coefficients(resize(t.spectrum, n), t.scratchIQ)

	// Circular shift by n/2 moves the DC bin to the middle of the trace
	half := n / 2
	frame := Frame{
		Frequencies: make([]float64, n),
		Power:       make([]float64, n),
	}

	step := acq.SampleRate / float64(n)
	lower := acq.CentreFreq - acq.SampleRate/2
	for k := range n {
		frame.Frequencies[k] = lower + float64(k)*step
		frame.Power[k] = toDB(cmplx.Abs(t.spectrum[(k+n-half)%n]))
	}

	return &frame
}

func (t *Transformer) transformReal(samples []float64, acq Acquisition) *Frame {
	n := len(samples)
	if t.realFFT == nil || t.realFFT.Len() != n {
		t.realFFT = fourier.NewFFT(n)
	}

	coeffs := t.windowCoefficients(n)
	t.scratchReal = resize(t.scratchReal, n)
	floats.MulTo(t.scratchReal, samples, coeffs)

	// The real transform returns n/2+1 coefficients, only the first n/2 are kept
	t.spectrum = t.realFFT.Coefficients(resize(t.spectrum, n/2+1), t.scratchReal)

	half := n / 2
	axis := floats.Span(make([]float64, n), 0, acq.SampleRate)

	frame := Frame{
		Frequencies: axis[:half:half],
		Power:       make([]float64, half),
	}
	for k := range half {
		frame.Power[k] = toDB(cmplx.Abs(t.spectrum[k]))
	}

	return &frame
}

func (t *Transformer) windowCoefficients(n int) []float64 {
	if len(t.coeffs) == n {
		return t.coeffs
	}

	if n < 2 {
		// Tapering is undefined for a single sample
		t.coeffs = []float64{1}
	} else {
		t.coeffs = windowFunctions[t.window](n)
	}
	return t.coeffs
}

func toDB(magnitude float64) float64 {
	return DBScale * math.Log10(max(magnitude, MagnitudeFloor))
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}
