package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	// Indexes are built when the writer closes, so recording is not slowed down
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_frames_session ON frames (session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_peaks_frame ON peaks (frame_id);
CREATE INDEX IF NOT EXISTS idx_peaks_frequency ON peaks (frequency);
CREATE INDEX IF NOT EXISTS idx_bandwidths_peak ON bandwidths (peak_id);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      source_type,
                      source_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       source_type,
       source_id,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       source_type,
       source_id,
       config
FROM sessions
ORDER BY start_time, id`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    sequence,
                    timestamp,
                    bins,
                    start_frequency,
                    stop_frequency)
VALUES (?, ?, ?, ?, ?, ?)`

	insertPeakSQL = `
INSERT INTO peaks (frame_id,
                   kind,
                   bin,
                   frequency,
                   power)
VALUES (?, ?, ?, ?, ?)`

	insertBandwidthSQL = `
INSERT INTO bandwidths (peak_id,
                        drop_db,
                        lower,
                        upper)
VALUES (?, ?, ?, ?)`

	// Filters are appended by peakQuery
	selectPeaksSQL = `
SELECT p.id,
       f.id,
       f.sequence,
       f.timestamp,
       p.kind,
       p.bin,
       p.frequency,
       p.power,
       b.drop_db,
       b.lower,
       b.upper
FROM peaks p
         JOIN frames f ON f.id = p.frame_id
         LEFT JOIN bandwidths b ON b.peak_id = p.id
WHERE f.session_id = ?`
)
