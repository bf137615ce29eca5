package sdr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PowerFloor is the level used for bins the tool reported no valid reading for
const PowerFloor = -150.0

// PowerReading represents a single frequency power reading,
// allowing for explicit invalid/missing data representation
type PowerReading struct {
	Frequency float64 // Center frequency in Hz
	Power     float64 // Power level (dBm for rtl_power, dB for hackrf_sweep)
	IsValid   bool    // Whether the reading could be parsed
}

// SweepResult is one CSV line of sweep output: a contiguous chunk of bins
type SweepResult struct {
	Timestamp      time.Time      // Timestamp reported by the tool
	StartFrequency float64        // Lower edge of the chunk in Hz
	EndFrequency   float64        // Upper edge of the chunk in Hz
	BinWidth       float64        // Hz step/bin width
	NumSamples     int            // Number of samples used for this measurement
	Readings       []PowerReading // One reading per bin, in frequency order
	Device         string         // Device type (e.g., "RTL-SDR", "HackRF")
	DeviceID       string         // Serial number or index (human-readable)
}

// Levels returns the chunk's power levels, invalid readings replaced by floor
func (s *SweepResult) Levels(floor float64) []float64 {
	levels := make([]float64, len(s.Readings))
	for i, r := range s.Readings {
		if r.IsValid {
			levels[i] = r.Power
		} else {
			levels[i] = floor
		}
	}
	return levels
}

// ParseSweepLine parses the CSV format shared by `rtl_power` and `hackrf_sweep`:
//
//	date, time, Hz low, Hz high, Hz step, samples, dB, dB, ...
//
// Only the timestamp layout differs between the tools.
func ParseSweepLine(line, timeLayout string) (*SweepResult, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return nil, fmt.Errorf("invalid sweep output: not enough fields")
	}

	var (
		result SweepResult
		err    error
	)

	dateTime := strings.TrimSpace(fields[0]) + " " + strings.TrimSpace(fields[1])
	if result.Timestamp, err = time.Parse(timeLayout, dateTime); err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}

	if result.StartFrequency, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err != nil {
		return nil, fmt.Errorf("invalid start frequency: %w", err)
	}

	if result.EndFrequency, err = strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err != nil {
		return nil, fmt.Errorf("invalid end frequency: %w", err)
	}

	if result.BinWidth, err = strconv.ParseFloat(strings.TrimSpace(fields[4]), 64); err != nil {
		return nil, fmt.Errorf("invalid bin width: %w", err)
	}
	if result.BinWidth <= 0 {
		return nil, fmt.Errorf("invalid bin width: %f", result.BinWidth)
	}

	if result.NumSamples, err = strconv.Atoi(strings.TrimSpace(fields[5])); err != nil {
		return nil, fmt.Errorf("invalid number of samples: %w", err)
	}

	// Bins that fail to parse (e.g. "nan") are kept as invalid readings so the
	// chunk keeps its width
	result.Readings = make([]PowerReading, 0, len(fields)-6)
	for i, field := range fields[6:] {
		reading := PowerReading{
			Frequency: result.StartFrequency + (float64(i) * result.BinWidth) + (result.BinWidth / 2),
		}

		power, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err == nil && !math.IsNaN(power) && !math.IsInf(power, 0) {
			reading.Power = power
			reading.IsValid = true
		}

		result.Readings = append(result.Readings, reading)
	}

	return &result, nil
}
