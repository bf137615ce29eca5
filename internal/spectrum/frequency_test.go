package spectrum

import (
	"errors"
	"math"
	"testing"
)

func TestFrequencyRange_Setters(t *testing.T) {
	r, err := NewFrequencyRange(25e6, 35e6)
	if err != nil {
		t.Fatalf("Failed to create range: %v", err)
	}

	if err = r.SetStart(2.4e9); err == nil {
		t.Fatal("Expected error when start moves above stop")
	}

	// Widen first so the start can move up
	if err = r.SetStop(2.5e9); err != nil {
		t.Fatalf("SetStop failed: %v", err)
	}
	if err = r.SetStart(2.4e9); err != nil {
		t.Fatalf("SetStart failed: %v", err)
	}

	if r.Span() != 1e8 {
		t.Errorf("Expected span 1e8, got %f", r.Span())
	}
	if r.Centre() != 2.45e9 {
		t.Errorf("Expected centre 2.45e9, got %f", r.Centre())
	}

	if err = r.SetSpan(5e7); err != nil {
		t.Fatalf("SetSpan failed: %v", err)
	}
	if r.Start() != 2.4e9 {
		t.Errorf("Expected start to stay at 2.4e9, got %f", r.Start())
	}
	if r.Stop() != 2.45e9 {
		t.Errorf("Expected stop 2.45e9, got %f", r.Stop())
	}
}

func TestFrequencyRange_SetStopRejected(t *testing.T) {
	r, err := NewFrequencyRange(2.4e9, 2.5e9)
	if err != nil {
		t.Fatalf("Failed to create range: %v", err)
	}

	for _, stop := range []float64{2.4e9, 1e9, math.NaN()} {
		err = r.SetStop(stop)

		var rangeErr *InvalidRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("Expected InvalidRangeError for stop %f, got %v", stop, err)
		}
		if r.Start() != 2.4e9 || r.Stop() != 2.5e9 {
			t.Errorf("Range changed after rejected stop %f: %s", stop, r)
		}
	}
}

func TestFrequencyRange_SpanAndCentre(t *testing.T) {
	testCases := []struct {
		name      string
		mode      SpanMode
		span      float64
		wantStart float64
		wantStop  float64
		wantErr   bool
	}{
		{"keep start", SpanKeepStart, 20e6, 90e6, 110e6, false},
		{"keep centre", SpanKeepCentre, 20e6, 85e6, 105e6, false},
		{"zero span", SpanKeepStart, 0, 90e6, 100e6, true},
		{"negative span", SpanKeepCentre, -1e6, 90e6, 100e6, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := NewFrequencyRange(90e6, 100e6, WithSpanMode(tc.mode))
			if err != nil {
				t.Fatalf("Failed to create range: %v", err)
			}

			err = r.SetSpan(tc.span)
			if tc.wantErr != (err != nil) {
				t.Fatalf("Unexpected error state: %v", err)
			}
			if r.Start() != tc.wantStart || r.Stop() != tc.wantStop {
				t.Errorf("Expected %f-%f, got %f-%f", tc.wantStart, tc.wantStop, r.Start(), r.Stop())
			}
		})
	}

	r, _ := NewFrequencyRange(90e6, 100e6)
	if err := r.SetCentre(433e6); err != nil {
		t.Fatalf("SetCentre failed: %v", err)
	}
	if r.Start() != 428e6 || r.Stop() != 438e6 {
		t.Errorf("Expected 428-438 MHz, got %s", r)
	}
}

func TestFrequencyRange_ResBW(t *testing.T) {
	r, err := NewFrequencyRange(90e6, 110e6, WithBinCount(1000))
	if err != nil {
		t.Fatalf("Failed to create range: %v", err)
	}

	if r.ResBW() != 20e3 {
		t.Errorf("Expected 20 kHz resolution, got %f", r.ResBW())
	}

	if err = r.SetBinCount(2000); err != nil {
		t.Fatalf("SetBinCount failed: %v", err)
	}
	if r.ResBW() != 10e3 {
		t.Errorf("Expected 10 kHz resolution, got %f", r.ResBW())
	}
	if r.Start() != 90e6 || r.Stop() != 110e6 {
		t.Errorf("Bin count change moved the range: %s", r)
	}

	if err = r.SetBinCount(0); err == nil {
		t.Error("Expected error for zero bin count")
	}

	if _, err = NewFrequencyRange(10, 5); err == nil {
		t.Error("Expected error for inverted range")
	}
}
