package storage

import (
	"strings"
	"time"
)

// PeakOption filters a peak query
type PeakOption func(*peakQuery)

// WithPeakKind limits a peak query to live or held peaks
func WithPeakKind(kind PeakKind) PeakOption {
	return func(q *peakQuery) {
		q.kind = &kind
	}
}

// WithTimeRange limits a peak query to frames within [start, end]
func WithTimeRange(start, end time.Time) PeakOption {
	return func(q *peakQuery) {
		q.startTime = &start
		q.endTime = &end
	}
}

// WithFrequencyRange limits a peak query to peaks within [minFreq, maxFreq] Hz
func WithFrequencyRange(minFreq, maxFreq float64) PeakOption {
	return func(q *peakQuery) {
		q.minFreq = &minFreq
		q.maxFreq = &maxFreq
	}
}

// WithLimit caps the number of returned peaks. Bandwidth rows are joined,
// so the cap is applied while scanning, not in SQL.
func WithLimit(n int) PeakOption {
	return func(q *peakQuery) {
		q.limit = n
	}
}

type peakQuery struct {
	kind      *PeakKind
	startTime *time.Time
	endTime   *time.Time
	minFreq   *float64
	maxFreq   *float64
	limit     int
}

func newPeakQuery(options ...PeakOption) *peakQuery {
	var q peakQuery
	for _, option := range options {
		option(&q)
	}
	return &q
}

// build returns the statement and its arguments after sessionID
func (q *peakQuery) build(sessionID int64) (string, []any) {
	var sb strings.Builder
	args := []any{sessionID}

	sb.WriteString(selectPeaksSQL)

	if q.kind != nil {
		sb.WriteString(" AND p.kind = ?")
		args = append(args, string(*q.kind))
	}
	if q.startTime != nil {
		sb.WriteString(" AND f.timestamp >= ?")
		args = append(args, q.startTime.UTC())
	}
	if q.endTime != nil {
		sb.WriteString(" AND f.timestamp <= ?")
		args = append(args, q.endTime.UTC())
	}
	if q.minFreq != nil {
		sb.WriteString(" AND p.frequency >= ?")
		args = append(args, *q.minFreq)
	}
	if q.maxFreq != nil {
		sb.WriteString(" AND p.frequency <= ?")
		args = append(args, *q.maxFreq)
	}

	sb.WriteString(" ORDER BY p.id, b.id")
	return sb.String(), args
}
