// Package storage persists completed scans: session metadata, per-segment
// raw samples and the stitched trace, in a single sqlite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openair-rf/openair/internal/spectrum"
)

const defaultMaxBatchSize = 100

// WithMaxBatchSize sets the maximum number of rows inserted within a single
// statement.
func WithMaxBatchSize(size int) func(*Store) {
	return func(s *Store) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// Store handles database operations. Writes go through a WAL connection,
// reads through a separate read-only connection; both open lazily.
type Store struct {
	dbPath       string
	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store over the sqlite database at dbPath. The schema is
// initialized on first write.
func New(dbPath string, options ...func(*Store)) *Store {
	s := Store{
		dbPath:       dbPath,
		maxBatchSize: defaultMaxBatchSize,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records the start of a scan and returns its identifier.
// config may be a string, []byte or any JSON-serializable value; it is
// stored as a snapshot alongside the session.
func (s *Store) CreateSession(ctx context.Context, instrumentModel, scanName string, overallStartHz, overallStopHz float64, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, time.Now().UTC(), instrumentModel, scanName, overallStartHz, overallStopHz, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// StoreSegment saves one completed segment and its raw samples in a single
// transaction.
func (s *Store) StoreSegment(ctx context.Context, sessionID int64, record spectrum.SegmentRecord) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertSegmentSQL,
		sessionID,
		record.Band,
		record.Segment.CenterHz,
		record.Segment.SpanHz,
		record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting segment: %w", err)
	}

	segmentID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting segment ID: %w", err)
	}

	for chunk := range slices.Chunk(record.Samples, s.maxBatchSize) {
		values := make([]any, 0, len(chunk)*3)

		var sb strings.Builder
		sb.WriteString(insertSamplesSQL)
		for i, sample := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			values = append(values, segmentID, sample.FrequencyHz, sample.PowerDBm)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting samples: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// StoreTrace saves the stitched trace of a completed scan.
func (s *Store) StoreTrace(ctx context.Context, sessionID int64, trace spectrum.Trace) (err error) {
	if len(trace.Points) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	for chunk := range slices.Chunk(trace.Points, s.maxBatchSize) {
		values := make([]any, 0, len(chunk)*3)

		var sb strings.Builder
		sb.WriteString(insertTracePointsSQL)
		for i, p := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			values = append(values, sessionID, p.FrequencyMHz, p.PowerDBm)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("batch inserting trace points: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Session retrieves one scan session by ID.
func (s *Store) Session(ctx context.Context, id int64) (session *spectrum.ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess spectrum.ScanSession
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.InstrumentModel, &sess.ScanName, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

// Sessions returns all stored scan sessions ordered by start time.
func (s *Store) Sessions(ctx context.Context) (sessions []*spectrum.ScanSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess spectrum.ScanSession
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.InstrumentModel, &sess.ScanName, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

// Trace retrieves the stitched trace of a session, ordered by frequency.
func (s *Store) Trace(ctx context.Context, sessionID int64) (trace spectrum.Trace, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectTraceSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying trace: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var p spectrum.TracePoint
		if err = rows.Scan(&trace.StartHz, &trace.StopHz, &p.FrequencyMHz, &p.PowerDBm); err != nil {
			err = fmt.Errorf("scanning trace point: %w", err)
			return
		}
		trace.Points = append(trace.Points, p)
	}
	err = rows.Err()
	return
}

// SegmentRecords retrieves the raw per-segment samples of a session in
// acquisition order, suitable for re-stitching.
func (s *Store) SegmentRecords(ctx context.Context, sessionID int64) (records []spectrum.SegmentRecord, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSegmentsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying segments: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var band string
		var seg spectrum.Segment
		var ts time.Time
		var sample spectrum.RawSample
		if err = rows.Scan(&band, &seg.CenterHz, &seg.SpanHz, &ts, &sample.FrequencyHz, &sample.PowerDBm); err != nil {
			err = fmt.Errorf("scanning segment sample: %w", err)
			return
		}

		n := len(records)
		if n == 0 || records[n-1].Band != band || records[n-1].Segment != seg || !records[n-1].Timestamp.Equal(ts) {
			records = append(records, spectrum.SegmentRecord{Band: band, Segment: seg, Timestamp: ts})
			n++
		}
		records[n-1].Samples = append(records[n-1].Samples, sample)
	}
	err = rows.Err()
	return
}

// Close releases both database connections. Indexes are created on the
// write connection before it closes, once bulk inserts are done. Safe to
// call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}
