package spectrum

import "slices"

// SampleBlock is one acquisition worth of samples. Exactly one of IQ or Real
// is populated: IQ for complex baseband captures, Real for audio.
type SampleBlock struct {
	IQ   []complex128
	Real []float64
}

// Len returns the number of samples in the block
func (b SampleBlock) Len() int {
	if b.IQ != nil {
		return len(b.IQ)
	}
	return len(b.Real)
}

// Complex reports whether the block holds IQ samples
func (b SampleBlock) Complex() bool {
	return b.IQ != nil
}

// Frame is a power trace: Power[i] is the level in dB at Frequencies[i] Hz.
// Both slices always have the same length.
type Frame struct {
	Frequencies []float64 `json:"frequencies"`
	Power       []float64 `json:"power"`
}

// Len returns the number of bins in the frame
func (f *Frame) Len() int {
	return len(f.Frequencies)
}

// Layout returns the bin layout of the frame
func (f *Frame) Layout() Layout {
	if len(f.Frequencies) == 0 {
		return Layout{}
	}
	return Layout{
		Bins:  len(f.Frequencies),
		First: f.Frequencies[0],
		Last:  f.Frequencies[len(f.Frequencies)-1],
	}
}

// Clone returns a deep copy of the frame
func (f *Frame) Clone() *Frame {
	return &Frame{
		Frequencies: slices.Clone(f.Frequencies),
		Power:       slices.Clone(f.Power),
	}
}

// Layout identifies a bin arrangement. Two frames with equal layouts can be
// merged bin by bin.
type Layout struct {
	Bins  int
	First float64
	Last  float64
}

// IsZero reports whether the layout describes no bins at all
func (l Layout) IsZero() bool {
	return l.Bins == 0
}

// Band is a frequency interval in Hz
type Band struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper - Lower
func (b Band) Width() float64 {
	return b.Upper - b.Lower
}

// Bandwidth is the band occupied above peak - DropDB
type Bandwidth struct {
	DropDB float64 `json:"dropDB"`
	Band
}

// PeakRecord is the location and level of a spectrum maximum
type PeakRecord struct {
	Index      int         `json:"index"`
	Frequency  float64     `json:"frequency"`
	Power      float64     `json:"power"`
	Bandwidths []Bandwidth `json:"bandwidths,omitempty"` // In the order the drop levels were configured
}

// Bandwidth returns the band measured for the given drop level
func (p *PeakRecord) Bandwidth(dropDB float64) (Band, bool) {
	for _, bw := range p.Bandwidths {
		if bw.DropDB == dropDB {
			return bw.Band, true
		}
	}
	return Band{}, false
}
