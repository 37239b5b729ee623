package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// ErrNoData indicates that the mission has no records in the requested range.
var ErrNoData = errors.New("no data available")

// ReaderOption configures a SqliteRecordReader with filtering criteria.
type ReaderOption func(*SqliteRecordReader)

// WithStartTime excludes records taken before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *SqliteRecordReader) {
		r.startTime = &t
	}
}

// WithEndTime excludes records taken after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *SqliteRecordReader) {
		r.endTime = &t
	}
}

// WithTimeRange sets both start and end time filters.
// This is a convenience function equivalent to applying both WithStartTime
// and WithEndTime.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *SqliteRecordReader) {
		r.startTime = &startTime
		r.endTime = &endTime
	}
}

// SqliteRecordReader implements RecordReader for SQLite database backend.
type SqliteRecordReader struct {
	db *sql.DB

	missionID int64
	mission   *Mission

	startTime *time.Time // Optional start of time range filter
	endTime   *time.Time // Optional end of time range filter

	current record.Record
	rows    *sql.Rows
	err     error
}

func newSqliteRecordReader(ctx context.Context, db *sql.DB, missionID int64, opts ...ReaderOption) (*SqliteRecordReader, error) {
	rr := &SqliteRecordReader{
		db:        db,
		missionID: missionID,
	}
	for _, opt := range opts {
		opt(rr)
	}
	if err := rr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return rr, nil
}

func (rr *SqliteRecordReader) init(ctx context.Context) error {
	if rr.db == nil {
		return errors.New("database connection required")
	}
	if rr.missionID <= 0 {
		return errors.New("mission ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading mission", fn: rr.loadMission},
		{msg: "initializing filters", fn: rr.initFilters},
		{msg: "initializing query", fn: rr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (rr *SqliteRecordReader) loadMission(ctx context.Context) (err error) {
	rr.mission, err = loadMission(ctx, rr.db, rr.missionID)
	return
}

func (rr *SqliteRecordReader) initFilters(ctx context.Context) (err error) {
	if rr.startTime != nil && rr.endTime != nil {
		if rr.startTime.After(*rr.endTime) {
			return fmt.Errorf("start time %s is after end time %s", rr.startTime, rr.endTime)
		}
		return nil
	}

	stmt, err := rr.db.PrepareContext(ctx, selectTimeBoundsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var first, last sql.NullInt64
	if err = stmt.QueryRowContext(ctx, rr.missionID).Scan(&first, &last); err != nil {
		return fmt.Errorf("scanning time bounds: %w", err)
	}
	if !first.Valid || !last.Valid {
		return ErrNoData
	}

	if rr.startTime == nil {
		t := time.Unix(0, first.Int64).UTC()
		rr.startTime = &t
	}
	if rr.endTime == nil {
		t := time.Unix(0, last.Int64).UTC()
		rr.endTime = &t
	}
	if rr.startTime.After(*rr.endTime) {
		return fmt.Errorf("start time %s is after end time %s", rr.startTime, rr.endTime)
	}

	return nil
}

func (rr *SqliteRecordReader) initQuery(ctx context.Context) (err error) {
	stmt, err := rr.db.PrepareContext(ctx, selectSamplesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if rr.rows, err = stmt.QueryContext(ctx, rr.missionID, rr.startTime.UnixNano(), rr.endTime.UnixNano()); err != nil {
		return err
	}
	return nil
}

func (rr *SqliteRecordReader) Mission() *Mission {
	return rr.mission
}

func (rr *SqliteRecordReader) Next(ctx context.Context) bool {
	if rr.err != nil || rr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		rr.err = ctx.Err()
		return false
	default:
	}

	if !rr.rows.Next() {
		return false
	}

	var r record.Record
	if err := rr.rows.Scan(sampleDest(&r)...); err != nil {
		rr.err = fmt.Errorf("scanning record: %w", err)
		return false
	}
	rr.current = r
	return true
}

func (rr *SqliteRecordReader) Current() record.Record {
	return rr.current
}

func (rr *SqliteRecordReader) Error() error {
	if rr.err != nil {
		return rr.err
	}
	if rr.rows != nil {
		return rr.rows.Err()
	}
	return nil
}

func (rr *SqliteRecordReader) Close() error {
	if rr.rows != nil {
		err := rr.rows.Close()
		rr.rows = nil
		return err
	}
	return nil
}

var _ RecordReader = (*SqliteRecordReader)(nil)
