package storage

import (
	"context"
	"errors"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
)

// ErrSessionNotFound is returned by Session for unknown IDs
var ErrSessionNotFound = errors.New("session not found")

// Store keeps recording sessions and the peaks measured during them. All
// writes of a single emission are atomic.
type Store interface {
	// CreateSession starts a recording session for a source and returns its ID.
	// config is stored verbatim if it is a string or []byte, otherwise as JSON.
	CreateSession(ctx context.Context, sourceType, sourceID string, config any) (sessionID int64, err error)

	// Session returns a single session
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreEmission saves the frame metadata of an emission with its live
	// and held peaks and the held peak's bandwidths
	StoreEmission(ctx context.Context, sessionID int64, e *pipeline.Emission) (frameID int64, err error)

	// Peaks returns the stored peaks of a session, optionally filtered
	Peaks(ctx context.Context, sessionID int64, options ...PeakOption) ([]*Peak, error)

	// Close releases all database connections. It is safe to call more than once.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
