package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/radio-spectrum/internal/pipeline"
	"github.com/roman-kulish/radio-spectrum/internal/spectrum"
)

// SqliteStore records sessions and peak measurements in a Sqlite database.
// Writes go through a single WAL connection, reads through a separate
// read-only one; both are opened on first use.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the database file at dbPath
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // Sqlite allows a single writer

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
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

// CreateSession starts a new recording session. config may be a string,
// []byte, or any JSON-serializable value.
func (s *SqliteStore) CreateSession(ctx context.Context, sourceType, sourceID string, config any) (sessionID int64, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, sourceType, sourceID, configData)
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

// Session returns a session by ID, ErrSessionNotFound if there is none
func (s *SqliteStore) Session(ctx context.Context, id int64) (*Session, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var (
		sess   Session
		config sql.NullString
	)
	err = db.QueryRowContext(ctx, selectSessionSQL, id).Scan(&sess.ID, &sess.StartTime, &sess.SourceType, &sess.SourceID, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	sess.Config = fromConfigData(config)

	return &sess, nil
}

// Sessions returns every session ordered by start time
func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
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
		var (
			sess   Session
			config sql.NullString
		)
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.SourceType, &sess.SourceID, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sess.Config = fromConfigData(config)
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating sessions: %w", err)
	}
	return
}

// StoreEmission records the frame metadata of an emission and its peaks,
// including the bandwidth of the held peak, in a single transaction
func (s *SqliteStore) StoreEmission(ctx context.Context, sessionID int64, e *pipeline.Emission) (frameID int64, err error) {
	if e == nil || e.Frame == nil || e.Frame.Len() == 0 {
		return 0, errors.New("emission has no frame")
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	layout := e.Frame.Layout()
	result, err := tx.ExecContext(ctx, insertFrameSQL,
		sessionID,
		int64(e.Sequence),
		e.Timestamp.UTC(),
		layout.Bins,
		layout.First,
		layout.Last,
	)
	if err != nil {
		err = fmt.Errorf("inserting frame: %w", err)
		return
	}

	if frameID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting frame ID: %w", err)
		return
	}

	if e.Peak != nil {
		if err = storePeak(ctx, tx, frameID, PeakLive, e.Peak); err != nil {
			return
		}
	}

	if e.HeldPeak != nil {
		if err = storePeak(ctx, tx, frameID, PeakHeld, e.HeldPeak); err != nil {
			return
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func storePeak(ctx context.Context, tx *sql.Tx, frameID int64, kind PeakKind, p *spectrum.PeakRecord) error {
	result, err := tx.ExecContext(ctx, insertPeakSQL, frameID, string(kind), p.Index, p.Frequency, p.Power)
	if err != nil {
		return fmt.Errorf("inserting %s peak: %w", kind, err)
	}

	if len(p.Bandwidths) == 0 {
		return nil
	}

	peakID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting peak ID: %w", err)
	}

	for _, bw := range p.Bandwidths {
		if _, err = tx.ExecContext(ctx, insertBandwidthSQL, peakID, bw.DropDB, bw.Lower, bw.Upper); err != nil {
			return fmt.Errorf("inserting %g dB bandwidth: %w", bw.DropDB, err)
		}
	}
	return nil
}

// Peaks returns the stored peaks of a session in recording order
func (s *SqliteStore) Peaks(ctx context.Context, sessionID int64, options ...PeakOption) (peaks []*Peak, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	q := newPeakQuery(options...)
	query, args := q.build(sessionID)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("querying peaks: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	var current *Peak
	for rows.Next() {
		var (
			p                  Peak
			sequence           int64
			kind               string
			drop, lower, upper sql.NullFloat64
		)
		if err = rows.Scan(&p.ID, &p.FrameID, &sequence, &p.Timestamp, &kind, &p.Bin, &p.Frequency, &p.Power, &drop, &lower, &upper); err != nil {
			err = fmt.Errorf("scanning peak: %w", err)
			return
		}

		if current == nil || current.ID != p.ID {
			if q.limit > 0 && len(peaks) == q.limit {
				break
			}
			p.Sequence = uint64(sequence)
			p.Kind = PeakKind(kind)
			current = &p
			peaks = append(peaks, current)
		}

		if drop.Valid {
			current.Bandwidths = append(current.Bandwidths, spectrum.Bandwidth{
				DropDB: drop.Float64,
				Band:   spectrum.Band{Lower: lower.Float64, Upper: upper.Float64},
			})
		}
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating peaks: %w", err)
	}
	return
}

// Close builds the indexes and releases both connections. It is safe to call
// more than once.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.writeDB != nil {
			if err := runSQLCommand(s.writeDB, initIndexesSQL); err != nil {
				errs = append(errs, fmt.Errorf("creating indexes: %w", err))
			}

			errs = append(errs, s.writeDB.Close())
			s.writeDB = nil
		}

		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
			s.readDB = nil
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
