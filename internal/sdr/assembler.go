package sdr

import (
	"fmt"
	"time"
)

// Sweep is one complete pass over the configured range
type Sweep struct {
	Timestamp      time.Time // Timestamp of the first chunk
	StartFrequency float64   // Lower edge of the lowest chunk in Hz
	EndFrequency   float64   // Upper edge of the highest chunk in Hz
	BinWidth       float64
	Levels         []float64 // Power per bin in ascending frequency order
}

type node struct {
	chunk *SweepResult
	next  *node
}

// SweepAssembler collects the chunks of a sweep, which the tools emit one line
// at a time and not necessarily in frequency order. A chunk starting at a
// frequency already seen in the current sweep marks the rollover to the next
// sweep and completes the current one.
//
// SweepAssembler is not safe for concurrent use.
type SweepAssembler struct {
	floor float64 // Level used for invalid readings

	head *node
	size int
}

// NewSweepAssembler creates an assembler filling invalid readings with floor
func NewSweepAssembler(floor float64) *SweepAssembler {
	return &SweepAssembler{floor: floor}
}

// Add inserts a chunk in frequency order. When the chunk starts a new sweep,
// the previous one is returned complete and the chunk opens the next.
func (a *SweepAssembler) Add(chunk *SweepResult) (*Sweep, error) {
	if chunk == nil {
		return nil, fmt.Errorf("cannot insert nil chunk")
	}
	if len(chunk.Readings) == 0 {
		return nil, nil
	}

	if a.head == nil || chunk.StartFrequency < a.head.chunk.StartFrequency {
		a.head = &node{chunk: chunk, next: a.head}
		a.size++
		return nil, nil
	}

	current := a.head
	for {
		if current.chunk.StartFrequency == chunk.StartFrequency {
			return a.rollover(chunk), nil
		}
		if current.next == nil || current.next.chunk.StartFrequency > chunk.StartFrequency {
			current.next = &node{chunk: chunk, next: current.next}
			a.size++
			return nil, nil
		}
		current = current.next
	}
}

// Chunks returns the number of chunks in the sweep being assembled
func (a *SweepAssembler) Chunks() int {
	return a.size
}

// Reset drops the partial sweep
func (a *SweepAssembler) Reset() {
	a.head = nil
	a.size = 0
}

func (a *SweepAssembler) rollover(chunk *SweepResult) *Sweep {
	sweep := a.assemble()
	a.head = &node{chunk: chunk}
	a.size = 1
	return sweep
}

func (a *SweepAssembler) assemble() *Sweep {
	sweep := Sweep{
		Timestamp:      a.head.chunk.Timestamp,
		StartFrequency: a.head.chunk.StartFrequency,
		BinWidth:       a.head.chunk.BinWidth,
	}

	var bins int
	for n := a.head; n != nil; n = n.next {
		bins += len(n.chunk.Readings)
	}

	sweep.Levels = make([]float64, 0, bins)
	for n := a.head; n != nil; n = n.next {
		sweep.Levels = append(sweep.Levels, n.chunk.Levels(a.floor)...)
		sweep.EndFrequency = n.chunk.EndFrequency
		if n.chunk.Timestamp.Before(sweep.Timestamp) {
			sweep.Timestamp = n.chunk.Timestamp
		}
	}

	return &sweep
}
