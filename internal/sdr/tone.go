package sdr

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

// WithToneNoise adds uniform noise of the given peak amplitude to every sample
func WithToneNoise(amplitude float64) func(*Tone) {
	return func(t *Tone) {
		t.noise = amplitude
	}
}

// WithToneSeed makes the noise sequence reproducible
func WithToneSeed(seed uint64) func(*Tone) {
	return func(t *Tone) {
		t.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRealSamples makes the tone a real-valued signal, as from a sound card
func WithRealSamples() func(*Tone) {
	return func(t *Tone) {
		t.real = true
	}
}

// Tone is a synthetic block source producing a single sinusoid. In complex
// mode the tone sits offset Hz away from the centre frequency, in real mode
// at offset Hz absolute. The phase is continuous across reads.
type Tone struct {
	sampleRate float64
	centreFreq float64
	offset     float64
	amplitude  float64
	noise      float64
	real       bool

	phase float64
	rng   *rand.Rand
}

// NewTone creates a synthetic source
func NewTone(sampleRate, centreFreq, offset, amplitude float64, options ...func(*Tone)) (*Tone, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %f given", sampleRate)
	}
	if math.Abs(offset) >= sampleRate/2 {
		return nil, fmt.Errorf("tone offset %f Hz exceeds the Nyquist limit of %f Hz", offset, sampleRate/2)
	}

	t := Tone{
		sampleRate: sampleRate,
		centreFreq: centreFreq,
		offset:     offset,
		amplitude:  amplitude,
		rng:        rand.New(rand.NewPCG(1, 2)),
	}

	for _, option := range options {
		option(&t)
	}

	return &t, nil
}

func (t *Tone) SampleRate() float64 { return t.sampleRate }
func (t *Tone) CentreFreq() float64 { return t.centreFreq }

// ReadSamples generates count samples
func (t *Tone) ReadSamples(ctx context.Context, count int) (spectrum.SampleBlock, error) {
	if err := ctx.Err(); err != nil {
		return spectrum.SampleBlock{}, err
	}
	if count <= 0 {
		return spectrum.SampleBlock{}, fmt.Errorf("invalid sample count: %d", count)
	}

	step := 2 * math.Pi * t.offset / t.sampleRate

	if t.real {
		samples := make([]float64, count)
		for i := range samples {
			samples[i] = t.amplitude*math.Cos(t.phase) + t.jitter()
			t.advance(step)
		}
		return spectrum.SampleBlock{Real: samples}, nil
	}

	iq := make([]complex128, count)
	for i := range iq {
		sin, cos := math.Sincos(t.phase)
		iq[i] = complex(t.amplitude*cos+t.jitter(), t.amplitude*sin+t.jitter())
		t.advance(step)
	}
	return spectrum.SampleBlock{IQ: iq}, nil
}

func (t *Tone) advance(step float64) {
	t.phase = math.Mod(t.phase+step, 2*math.Pi)
}

func (t *Tone) jitter() float64 {
	if t.noise == 0 {
		return 0
	}
	return t.noise * (2*t.rng.Float64() - 1)
}
