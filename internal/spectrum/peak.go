package spectrum

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidThreshold is returned for drop levels that are not finite positive dB values
var ErrInvalidThreshold = errors.New("invalid bandwidth threshold")

// DefaultDropLevels are the dB-below-peak levels used for bandwidth analysis
var DefaultDropLevels = []float64{3, 6, 9}

// FindPeak locates the first global maximum of levels and reports it against
// the matching frequency bin. ok is false for an empty trace.
func FindPeak(frequencies, levels []float64) (peak PeakRecord, ok bool) {
	if len(levels) == 0 || len(levels) != len(frequencies) {
		return PeakRecord{}, false
	}

	idx := floats.MaxIdx(levels)
	return PeakRecord{
		Index:     idx,
		Frequency: frequencies[idx],
		Power:     levels[idx],
	}, true
}

// FindBand returns the band around peakIndex where levels stay above threshold.
//
// The scan moves outward from the peak and stops at the first bin at or below
// the threshold, so only the lobe containing the peak is measured. On multi-lobe
// spectra a lower threshold may still end at the same crossing.
func FindBand(frequencies, levels []float64, peakIndex int, threshold float64) Band {
	lower := peakIndex
	for lower > 0 && levels[lower] > threshold {
		lower--
	}

	upper := peakIndex
	for upper < len(levels)-1 && levels[upper] > threshold {
		upper++
	}

	return Band{Lower: frequencies[lower], Upper: frequencies[upper]}
}

// ValidateDropLevels checks that every drop level is a finite value above 0 dB
func ValidateDropLevels(drops []float64) error {
	for _, d := range drops {
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return fmt.Errorf("%w: %v dB", ErrInvalidThreshold, d)
		}
	}
	return nil
}

// PeakAnalyzer measures the live peak of a frame and the peak of a max-hold
// buffer, the latter together with the occupied bandwidth at each drop level.
type PeakAnalyzer struct {
	drops []float64
}

// NewPeakAnalyzer creates an analyzer measuring bandwidth at the given drop levels
func NewPeakAnalyzer(drops []float64) (*PeakAnalyzer, error) {
	p := PeakAnalyzer{}
	if err := p.SetDropLevels(drops); err != nil {
		return nil, err
	}
	return &p, nil
}

// DropLevels returns the configured drop levels
func (p *PeakAnalyzer) DropLevels() []float64 {
	return slices.Clone(p.drops)
}

// SetDropLevels replaces the drop levels. An empty set disables bandwidth analysis.
func (p *PeakAnalyzer) SetDropLevels(drops []float64) error {
	if err := ValidateDropLevels(drops); err != nil {
		return err
	}
	p.drops = slices.Clone(drops)
	return nil
}

// LivePeak finds the maximum of the frame
func (p *PeakAnalyzer) LivePeak(frame *Frame) (PeakRecord, bool) {
	return FindPeak(frame.Frequencies, frame.Power)
}

// HeldPeak finds the maximum of a max-hold buffer laid out like frame and
// measures the band above each drop level
func (p *PeakAnalyzer) HeldPeak(frame *Frame, maxHold []float64) (PeakRecord, bool) {
	peak, ok := FindPeak(frame.Frequencies, maxHold)
	if !ok {
		return PeakRecord{}, false
	}

	if len(p.drops) > 0 {
		peak.Bandwidths = make([]Bandwidth, len(p.drops))
		for i, drop := range p.drops {
			peak.Bandwidths[i] = Bandwidth{
				DropDB: drop,
				Band:   FindBand(frame.Frequencies, maxHold, peak.Index, peak.Power-drop),
			}
		}
	}

	return peak, true
}
