package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// DefaultImportBatch is the number of records stored per transaction.
const DefaultImportBatch = 5000

// Iterator yields records in order.
type Iterator interface {
	Next(context.Context) bool
	Current() record.Record
	Error() error
	Close() error
}

// RecordSink persists records of a mission.
type RecordSink interface {
	StoreRecords(ctx context.Context, missionID int64, records []record.Record) error
}

// Stats describe a merged dataset.
type Stats struct {
	Records    int64
	First      time.Time
	Last       time.Time
	OutOfOrder int64 // records older than their predecessor
	Truncated  int64 // torn final rows skipped
}

type truncationCounter interface {
	Truncated() int64
}

func (s *Stats) finish(it Iterator) {
	if tc, ok := it.(truncationCounter); ok {
		s.Truncated = tc.Truncated()
	}
}

func (s *Stats) add(r record.Record) {
	t := r.Time()
	if s.Records == 0 {
		s.First = t
	} else if t.Before(s.Last) {
		s.OutOfOrder++
	}
	if t.After(s.Last) || s.Records == 0 {
		s.Last = t
	}
	s.Records++
}

// LogValue implements slog.LogValuer.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("records", humanize.Comma(s.Records)),
		slog.Time("first", s.First),
		slog.Time("last", s.Last),
		slog.Duration("span", s.Last.Sub(s.First)),
		slog.Int64("outOfOrder", s.OutOfOrder),
		slog.Int64("truncated", s.Truncated),
	)
}

// Merge writes the header once followed by every record of it, in order.
func Merge(ctx context.Context, it Iterator, dst io.Writer) (stats Stats, err error) {
	w := csv.NewWriter(dst)
	if err = w.Write(record.Header); err != nil {
		return stats, fmt.Errorf("writing header: %w", err)
	}

	for it.Next(ctx) {
		r := it.Current()
		if err = w.Write(r.Row()); err != nil {
			return stats, fmt.Errorf("writing record: %w", err)
		}
		stats.add(r)
	}
	stats.finish(it)
	if err = it.Error(); err != nil {
		return stats, fmt.Errorf("reading records: %w", err)
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}
	return stats, nil
}

// Import stores every record of it in sink under missionID, batchSize
// records per call.
func Import(ctx context.Context, it Iterator, sink RecordSink, missionID int64, batchSize int) (stats Stats, err error) {
	if batchSize <= 0 {
		return stats, errors.New("batch size must be positive")
	}

	batch := make([]record.Record, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := sink.StoreRecords(ctx, missionID, batch); err != nil {
			return fmt.Errorf("storing %d records: %w", len(batch), err)
		}
		batch = batch[:0]
		return nil
	}

	for it.Next(ctx) {
		r := it.Current()
		batch = append(batch, r)
		stats.add(r)
		if len(batch) == batchSize {
			if err = flush(); err != nil {
				return stats, err
			}
		}
	}
	stats.finish(it)
	if err = it.Error(); err != nil {
		return stats, fmt.Errorf("reading records: %w", err)
	}
	return stats, flush()
}
