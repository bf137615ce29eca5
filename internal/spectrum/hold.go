package spectrum

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const (
	MaxHold HoldKind = iota
	MinHold
	Average
)

// errLayoutMismatch signals that a hold buffer cannot be merged with a frame
var errLayoutMismatch = errors.New("hold buffer layout mismatch")

// HoldKind selects one of the accumulation buffers
type HoldKind int

func (k HoldKind) String() string {
	switch k {
	case MaxHold:
		return "max"
	case MinHold:
		return "min"
	case Average:
		return "average"
	default:
		return "unknown"
	}
}

// HoldKinds lists every accumulation kind in a stable order
var HoldKinds = []HoldKind{MaxHold, MinHold, Average}

// HoldBuffers carries copies of the seeded accumulation buffers. A nil slice
// means the corresponding hold is disabled or not yet seeded.
type HoldBuffers struct {
	MaxHold []float64 `json:"maxHold,omitempty"`
	MinHold []float64 `json:"minHold,omitempty"`
	Average []float64 `json:"average,omitempty"`
}

type holdBuffer struct {
	enabled bool
	layout  Layout
	values  []float64
	count   int
}

func (h *holdBuffer) discard() {
	h.layout = Layout{}
	h.values = nil
	h.count = 0
}

func (h *holdBuffer) seed(frame *Frame) {
	h.layout = frame.Layout()
	h.values = slices.Clone(frame.Power)
	h.count = 1
}

func (h *holdBuffer) merge(kind HoldKind, frame *Frame) error {
	if h.layout != frame.Layout() || len(h.values) != len(frame.Power) {
		return errLayoutMismatch
	}

	h.count++
	switch kind {
	case MaxHold:
		for i, v := range frame.Power {
			h.values[i] = max(h.values[i], v)
		}
	case MinHold:
		for i, v := range frame.Power {
			h.values[i] = min(h.values[i], v)
		}
	case Average:
		// avg_n = avg_(n-1) * (n-1)/n + v/n
		n := float64(h.count)
		floats.Scale((n-1)/n, h.values)
		floats.AddScaled(h.values, 1/n, frame.Power)
	}
	return nil
}

// HoldAccumulator keeps max-hold, min-hold and running average buffers across
// frames. Holds are cumulative: nothing decays until the buffer is reseeded
// by a layout change, a reset, or a disable.
type HoldAccumulator struct {
	buffers [3]holdBuffer
}

// NewHoldAccumulator creates an accumulator with every hold disabled
func NewHoldAccumulator() *HoldAccumulator {
	return &HoldAccumulator{}
}

// Enable turns a hold on. The buffer is seeded from the next accumulated frame.
func (a *HoldAccumulator) Enable(kind HoldKind) {
	b := &a.buffers[kind]
	if b.enabled {
		return
	}
	b.enabled = true
	b.discard()
}

// Disable turns a hold off and drops its buffer
func (a *HoldAccumulator) Disable(kind HoldKind) {
	b := &a.buffers[kind]
	b.enabled = false
	b.discard()
}

// Enabled reports whether a hold is on
func (a *HoldAccumulator) Enabled(kind HoldKind) bool {
	return a.buffers[kind].enabled
}

// Reset clears all buffers but keeps the enabled holds on
func (a *HoldAccumulator) Reset() {
	for i := range a.buffers {
		a.buffers[i].discard()
	}
}

// Invalidate forces every enabled hold to reseed from the next frame
func (a *HoldAccumulator) Invalidate() {
	a.Reset()
}

// Accumulate folds a frame into every enabled hold
func (a *HoldAccumulator) Accumulate(frame *Frame) {
	for _, kind := range HoldKinds {
		b := &a.buffers[kind]
		if !b.enabled {
			continue
		}

		if b.values == nil {
			b.seed(frame)
			continue
		}

		if err := b.merge(kind, frame); errors.Is(err, errLayoutMismatch) {
			b.seed(frame)
		}
	}
}

// Buffer returns the live buffer of a hold, nil if disabled or not seeded.
// The returned slice must not be modified.
func (a *HoldAccumulator) Buffer(kind HoldKind) []float64 {
	return a.buffers[kind].values
}

// Count returns the number of frames accumulated since the hold was last seeded
func (a *HoldAccumulator) Count(kind HoldKind) int {
	return a.buffers[kind].count
}

// Buffers returns copies of the enabled and seeded buffers
func (a *HoldAccumulator) Buffers() HoldBuffers {
	return HoldBuffers{
		MaxHold: slices.Clone(a.buffers[MaxHold].values),
		MinHold: slices.Clone(a.buffers[MinHold].values),
		Average: slices.Clone(a.buffers[Average].values),
	}
}
