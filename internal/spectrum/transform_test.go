package spectrum

import (
	"errors"
	"math"
	"math/cmplx"
	"slices"
	"testing"
)

func TestTransform_AudioAxis(t *testing.T) {
	tr, err := NewTransformer()
	if err != nil {
		t.Fatalf("Failed to create transformer: %v", err)
	}

	const n = 64
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Cos(2 * math.Pi * 8 * float64(i) / n)
	}

	frame, err := tr.Transform(SampleBlock{Real: samples}, Acquisition{SampleRate: 44100})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if frame.Len() != n/2 || len(frame.Power) != n/2 {
		t.Fatalf("Expected %d bins, got %d frequencies and %d levels", n/2, frame.Len(), len(frame.Power))
	}
	if frame.Frequencies[0] != 0 {
		t.Errorf("Expected axis to start at 0 Hz, got %f", frame.Frequencies[0])
	}
	for i := 1; i < frame.Len(); i++ {
		if frame.Frequencies[i] <= frame.Frequencies[i-1] {
			t.Fatalf("Axis not strictly increasing at bin %d", i)
		}
	}

	if peak, _ := FindPeak(frame.Frequencies, frame.Power); peak.Index != 8 {
		t.Errorf("Expected tone in bin 8, got %d", peak.Index)
	}
}

func TestTransform_IQAxis(t *testing.T) {
	tr, err := NewTransformer(WithWindow(WindowHamming))
	if err != nil {
		t.Fatalf("Failed to create transformer: %v", err)
	}

	const n = 16
	iq := make([]complex128, n)
	for i := range iq {
		iq[i] = cmplx.Exp(complex(0, 2*math.Pi*3*float64(i)/n))
	}

	acq := Acquisition{SampleRate: 20e6, CentreFreq: 100e6}
	frame, err := tr.Transform(SampleBlock{IQ: iq}, acq)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if frame.Len() != n {
		t.Fatalf("Expected %d bins, got %d", n, frame.Len())
	}
	if frame.Frequencies[0] != 90e6 {
		t.Errorf("Expected first bin at 90 MHz, got %f", frame.Frequencies[0])
	}

	step := 20e6 / n
	for i := 1; i < n; i++ {
		if d := frame.Frequencies[i] - frame.Frequencies[i-1]; math.Abs(d-step) > 1e-6 {
			t.Fatalf("Bin %d: expected step %f, got %f", i, step, d)
		}
	}
	if last := frame.Frequencies[n-1]; math.Abs(last-(110e6-step)) > 1e-6 || last >= 110e6 {
		t.Errorf("Expected last bin at %f, got %f", 110e6-step, last)
	}

	// +3 bins above the centre
	if peak, _ := FindPeak(frame.Frequencies, frame.Power); peak.Index != n/2+3 {
		t.Errorf("Expected tone in bin %d, got %d", n/2+3, peak.Index)
	}
}

func TestTransform_IQDC(t *testing.T) {
	tr, _ := NewTransformer()

	const n = 8
	iq := make([]complex128, n)
	for i := range iq {
		iq[i] = 1
	}

	frame, err := tr.Transform(SampleBlock{IQ: iq}, Acquisition{SampleRate: 2e6, CentreFreq: 433e6})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	peak, _ := FindPeak(frame.Frequencies, frame.Power)
	if peak.Index != n/2 || peak.Frequency != 433e6 {
		t.Errorf("Expected DC at index %d (433 MHz), got %d (%f)", n/2, peak.Index, peak.Frequency)
	}
	if want := DBScale * math.Log10(n); math.Abs(peak.Power-want) > 1e-9 {
		t.Errorf("Expected DC level %f dB, got %f", want, peak.Power)
	}

	// Every other bin is empty, so it sits at the magnitude floor
	floor := DBScale * math.Log10(MagnitudeFloor)
	for i, p := range frame.Power {
		if i == n/2 {
			continue
		}
		if p < floor || p > -200 {
			t.Errorf("Bin %d: expected level near the %f dB floor, got %f", i, floor, p)
		}
	}
}

func TestTransform_Deterministic(t *testing.T) {
	tr, _ := NewTransformer(WithWindow(WindowHann))

	iq := []complex128{1 + 2i, -0.5 + 0.1i, 0.3 - 0.9i, 0, 0.25i, -1, 0.7 + 0.7i, 0.1}
	acq := Acquisition{SampleRate: 1e6, CentreFreq: 5e6}

	a, err := tr.Transform(SampleBlock{IQ: iq}, acq)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	b, _ := tr.Transform(SampleBlock{IQ: iq}, acq)

	if !slices.Equal(a.Power, b.Power) || !slices.Equal(a.Frequencies, b.Frequencies) {
		t.Error("Expected identical output for identical input")
	}
}

func TestTransform_Errors(t *testing.T) {
	tr, _ := NewTransformer()

	if _, err := tr.Transform(SampleBlock{}, Acquisition{SampleRate: 1e6}); !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("Expected ErrEmptyBlock, got %v", err)
	}
	if _, err := tr.Transform(SampleBlock{Real: []float64{1, 2}}, Acquisition{}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := NewTransformer(WithWindow("triangle")); err == nil {
		t.Error("Expected error for unknown window function")
	}
}
