package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

// ErrUnknownPreset is returned by ApplyPreset for names not in Presets
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named frequency range
type Preset struct {
	Start float64
	Stop  float64
}

// Presets are the ready-made ranges accepted by ApplyPreset
var Presets = map[string]Preset{
	"ism-433": {Start: 433.05e6, Stop: 434.79e6},
	"ism-868": {Start: 863e6, Stop: 870e6},
	"ism-2.4": {Start: 2.4e9, Stop: 2.5e9},
	"ism-5.8": {Start: 5.725e9, Stop: 5.875e9},
}

// PresetNames returns the preset names in sorted order
func PresetNames() []string {
	return slices.Sorted(maps.Keys(Presets))
}

// Command is a configuration change applied between ticks
type Command interface {
	apply(o *Orchestrator) error
}

type (
	EnableMaxHold         struct{}
	DisableMaxHold        struct{}
	EnableMinHold         struct{}
	DisableMinHold        struct{}
	EnableAverage         struct{}
	DisableAverage        struct{}
	EnablePeakSearch      struct{}
	DisablePeakSearch     struct{}
	EnableHeldPeakSearch  struct{}
	DisableHeldPeakSearch struct{}

	// ResetHolds clears every hold buffer, enabled holds reseed on the next tick
	ResetHolds struct{}

	// Pause stops Run from executing ticks, state is kept for Resume
	Pause struct{}

	// Resume restarts ticking after Pause
	Resume struct{}
)

// SetBandwidthThresholds replaces the drop levels used for bandwidth analysis
type SetBandwidthThresholds struct {
	Levels []float64
}

// SetStart moves the lower edge of the frequency range
type SetStart struct {
	Frequency float64
}

// SetStop moves the upper edge of the frequency range
type SetStop struct {
	Frequency float64
}

// SetSpan changes the width of the frequency range
type SetSpan struct {
	Span float64
}

// SetCentre shifts the frequency range to a new centre
type SetCentre struct {
	Frequency float64
}

// ApplyPreset switches the frequency range to a named preset
type ApplyPreset struct {
	Name string
}

func (EnableMaxHold) apply(o *Orchestrator) error  { return o.setHold(spectrum.MaxHold, true) }
func (DisableMaxHold) apply(o *Orchestrator) error { return o.setHold(spectrum.MaxHold, false) }
func (EnableMinHold) apply(o *Orchestrator) error  { return o.setHold(spectrum.MinHold, true) }
func (DisableMinHold) apply(o *Orchestrator) error { return o.setHold(spectrum.MinHold, false) }
func (EnableAverage) apply(o *Orchestrator) error  { return o.setHold(spectrum.Average, true) }
func (DisableAverage) apply(o *Orchestrator) error { return o.setHold(spectrum.Average, false) }

func (EnablePeakSearch) apply(o *Orchestrator) error {
	o.settings.PeakSearch = true
	return nil
}

func (DisablePeakSearch) apply(o *Orchestrator) error {
	o.settings.PeakSearch = false
	return nil
}

func (EnableHeldPeakSearch) apply(o *Orchestrator) error {
	o.settings.HeldPeakSearch = true
	return nil
}

func (DisableHeldPeakSearch) apply(o *Orchestrator) error {
	o.settings.HeldPeakSearch = false
	return nil
}

func (ResetHolds) apply(o *Orchestrator) error {
	o.holds.Reset()
	return nil
}

func (Pause) apply(o *Orchestrator) error {
	o.paused = true
	return nil
}

func (Resume) apply(o *Orchestrator) error {
	o.paused = false
	return nil
}

func (c SetBandwidthThresholds) apply(o *Orchestrator) error {
	if err := o.analyzer.SetDropLevels(c.Levels); err != nil {
		return err
	}
	o.settings.DropLevels = o.analyzer.DropLevels()
	return nil
}

func (c SetStart) apply(o *Orchestrator) error  { return o.frequency.SetStart(c.Frequency) }
func (c SetStop) apply(o *Orchestrator) error   { return o.frequency.SetStop(c.Frequency) }
func (c SetSpan) apply(o *Orchestrator) error   { return o.frequency.SetSpan(c.Span) }
func (c SetCentre) apply(o *Orchestrator) error { return o.frequency.SetCentre(c.Frequency) }

func (c ApplyPreset) apply(o *Orchestrator) error {
	p, ok := Presets[c.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPreset, c.Name)
	}
	return o.frequency.Set(p.Start, p.Stop)
}
