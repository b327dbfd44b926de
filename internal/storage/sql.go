package storage

import (
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const (
	// Indexes are created on Close, once bulk inserts are done.
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_segments_session ON segments (session_id);
CREATE INDEX IF NOT EXISTS idx_samples_segment ON samples (segment_id);
CREATE INDEX IF NOT EXISTS idx_trace_points_session ON trace_points (session_id)`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      instrument_model,
                      scan_name,
                      overall_start_hz,
                      overall_stop_hz,
                      config)
VALUES (?, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       instrument_model,
       scan_name,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       instrument_model,
       scan_name,
       config
FROM sessions
ORDER BY start_time`

	insertSegmentSQL = `
INSERT INTO segments (session_id,
                      band_name,
                      center_hz,
                      span_hz,
                      timestamp)
VALUES (?, ?, ?, ?, ?)`

	insertSamplesSQL = `
INSERT INTO samples (segment_id,
                     frequency_hz,
                     power_dbm)
VALUES `

	insertTracePointsSQL = `
INSERT INTO trace_points (session_id,
                          frequency_mhz,
                          power_dbm)
VALUES `

	selectTraceSQL = `
SELECT s.overall_start_hz,
       s.overall_stop_hz,
       p.frequency_mhz,
       p.power_dbm
FROM sessions s
         JOIN trace_points p ON p.session_id = s.id
WHERE s.id = ?
ORDER BY p.frequency_mhz`

	selectSegmentsSQL = `
SELECT g.band_name,
       g.center_hz,
       g.span_hz,
       g.timestamp,
       m.frequency_hz,
       m.power_dbm
FROM segments g
         JOIN samples m ON m.segment_id = g.id
WHERE g.session_id = ?
ORDER BY g.id, m.id`
)
