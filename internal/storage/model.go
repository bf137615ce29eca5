package storage

import (
	"time"

	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

const (
	PeakLive PeakKind = "live"
	PeakHeld PeakKind = "held"
)

// PeakKind tells whether a stored peak was measured on the live trace or on max hold
type PeakKind string

// Session is one recording run of the pipeline
type Session struct {
	ID         int64
	StartTime  time.Time
	SourceType string  // e.g. "hackrf", "rtl", "iq", "tone"
	SourceID   string  // Serial number, device index or file name
	Config     *string // JSON encoded configuration, if recorded
}

// Peak is a stored peak measurement together with the frame it came from
type Peak struct {
	ID         int64
	FrameID    int64
	Sequence   uint64
	Timestamp  time.Time
	Kind       PeakKind
	Bin        int
	Frequency  float64
	Power      float64
	Bandwidths []spectrum.Bandwidth // Held peaks only, in drop level order
}
