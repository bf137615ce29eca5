package sdr

import (
	"slices"
	"testing"
)

func TestParseSweepLine(t *testing.T) {
	line := "2024-01-15, 12:30:45.123456, 2400000000, 2405000000, 1000000.00, 20, -70.5, -65.25, nan, -80, -75"

	result, err := ParseSweepLine(line, "2006-01-02 15:04:05.000000")
	if err != nil {
		t.Fatalf("Failed to parse line: %v", err)
	}

	if result.StartFrequency != 2_400_000_000 || result.EndFrequency != 2_405_000_000 {
		t.Errorf("Unexpected range: %f - %f", result.StartFrequency, result.EndFrequency)
	}
	if result.BinWidth != 1_000_000 || result.NumSamples != 20 {
		t.Errorf("Unexpected bin width %f or samples %d", result.BinWidth, result.NumSamples)
	}
	if result.Timestamp.Nanosecond() != 123456000 {
		t.Errorf("Expected microseconds to be parsed, got %d ns", result.Timestamp.Nanosecond())
	}

	if len(result.Readings) != 5 {
		t.Fatalf("Expected 5 readings, got %d", len(result.Readings))
	}
	if result.Readings[2].IsValid {
		t.Error("nan reading must be invalid")
	}
	if got := result.Readings[1].Frequency; got != 2_401_500_000 {
		t.Errorf("Expected bin centre 2401.5 MHz, got %f", got)
	}

	want := []float64{-70.5, -65.25, PowerFloor, -80, -75}
	if got := result.Levels(PowerFloor); !slices.Equal(got, want) {
		t.Errorf("Expected levels %v, got %v", want, got)
	}
}

func TestParseSweepLine_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not enough fields", "2024-01-15, 12:30:45, 100, 200, 10, 5"},
		{"bad timestamp", "2024/01/15, 12:30:45, 100, 200, 10, 5, -1"},
		{"bad start", "2024-01-15, 12:30:45, x, 200, 10, 5, -1"},
		{"bad end", "2024-01-15, 12:30:45, 100, x, 10, 5, -1"},
		{"zero bin width", "2024-01-15, 12:30:45, 100, 200, 0, 5, -1"},
		{"bad samples", "2024-01-15, 12:30:45, 100, 200, 10, x, -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSweepLine(tt.line, "2006-01-02 15:04:05"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
