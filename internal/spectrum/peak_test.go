package spectrum

import (
	"errors"
	"math"
	"testing"
)

func TestFindPeak(t *testing.T) {
	frame := testFrame(-80, -40, -10, -60)

	peak, ok := FindPeak(frame.Frequencies, frame.Power)
	if !ok {
		t.Fatal("Expected a peak")
	}
	if peak.Index != 2 || peak.Power != -10 || peak.Frequency != 102e6 {
		t.Errorf("Expected peak at index 2 (-10 dB, 102 MHz), got %+v", peak)
	}

	// Ties resolve to the first maximum
	if peak, _ = FindPeak([]float64{1, 2, 3}, []float64{-5, -1, -1}); peak.Index != 1 {
		t.Errorf("Expected first maximum at index 1, got %d", peak.Index)
	}

	if _, ok = FindPeak(nil, nil); ok {
		t.Error("Expected no peak for an empty trace")
	}
}

func TestHeldPeak_Bandwidth3dB(t *testing.T) {
	frame := &Frame{
		Frequencies: []float64{98e6, 99e6, 100e6, 101e6, 102e6},
		Power:       []float64{-70, -70, -70, -70, -70},
	}
	maxHold := []float64{-60, -40, -10, -40, -60}

	analyzer, err := NewPeakAnalyzer([]float64{3})
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	peak, ok := analyzer.HeldPeak(frame, maxHold)
	if !ok {
		t.Fatal("Expected a held peak")
	}
	if peak.Index != 2 || peak.Power != -10 {
		t.Fatalf("Expected held peak at index 2 (-10 dB), got %+v", peak)
	}

	band, ok := peak.Bandwidth(3)
	if !ok {
		t.Fatal("Expected a 3 dB bandwidth")
	}
	if band.Lower != 99e6 || band.Upper != 101e6 {
		t.Errorf("Expected 99-101 MHz, got %f-%f", band.Lower, band.Upper)
	}
	if band.Width() != 2e6 {
		t.Errorf("Expected bandwidth 2 MHz, got %f", band.Width())
	}
}

func TestHeldPeak_Thresholds(t *testing.T) {
	freqs := []float64{0, 1, 2, 3, 4, 5, 6}
	frame := &Frame{Frequencies: freqs, Power: make([]float64, len(freqs))}

	testCases := []struct {
		name    string
		maxHold []float64
		drop    float64
		want    Band
	}{
		{"3 dB", []float64{-60, -20, -12, -10, -11, -15, -30}, 3, Band{1, 5}},
		{"6 dB", []float64{-60, -20, -12, -10, -11, -15, -30}, 6, Band{1, 6}},
		{"clamped both sides", []float64{-10, -11, -12, -5, -12, -11, -10}, 30, Band{0, 6}},
		{"peak at start", []float64{-1, -50, -50, -50, -50, -50, -50}, 3, Band{0, 1}},
		{"second lobe ignored", []float64{-50, -9, -50, -10, -50, -12, -50}, 9, Band{0, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			analyzer, err := NewPeakAnalyzer([]float64{tc.drop})
			if err != nil {
				t.Fatalf("Failed to create analyzer: %v", err)
			}

			peak, _ := analyzer.HeldPeak(frame, tc.maxHold)
			got, _ := peak.Bandwidth(tc.drop)
			if got != tc.want {
				t.Errorf("Expected band %v, got %v", tc.want, got)
			}
		})
	}
}

func TestPeakAnalyzer_DropLevels(t *testing.T) {
	analyzer, err := NewPeakAnalyzer(DefaultDropLevels)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}

	frame := testFrame(-60, -50, -45, -40, -10, -40, -45, -50, -60)
	peak, _ := analyzer.HeldPeak(frame, frame.Power)
	if len(peak.Bandwidths) != len(DefaultDropLevels) {
		t.Fatalf("Expected %d bandwidths, got %d", len(DefaultDropLevels), len(peak.Bandwidths))
	}
	for i, bw := range peak.Bandwidths {
		if bw.DropDB != DefaultDropLevels[i] {
			t.Errorf("Expected drop levels in configured order, got %v at %d", bw.DropDB, i)
		}
	}

	for _, drops := range [][]float64{{0}, {-3}, {3, math.NaN()}, {math.Inf(1)}} {
		if err = analyzer.SetDropLevels(drops); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("Expected ErrInvalidThreshold for %v, got %v", drops, err)
		}
	}
	if got := analyzer.DropLevels(); len(got) != 3 {
		t.Errorf("Rejected drop levels must keep the previous set, got %v", got)
	}

	if err = analyzer.SetDropLevels(nil); err != nil {
		t.Fatalf("Expected empty drop set to be accepted: %v", err)
	}
	if peak, _ = analyzer.HeldPeak(frame, frame.Power); peak.Bandwidths != nil {
		t.Errorf("Expected no bandwidths without drop levels, got %v", peak.Bandwidths)
	}
}
