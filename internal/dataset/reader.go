package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

var ErrHeaderMismatch = errors.New("header does not match the record schema")

// CSVReader iterates the records of one or more shards in order.
type CSVReader struct {
	paths []string

	file    *os.File
	csv     *csv.Reader
	path    string
	line    int
	current record.Record
	err     error

	truncated int64
	logger    *slog.Logger
}

// WithLogger sets the logger for the CSVReader
func WithLogger(logger *slog.Logger) func(*CSVReader) {
	return func(r *CSVReader) {
		r.logger = logger
	}
}

// NewCSVReader creates a reader over the shard files at paths. Every file
// must start with the record header.
func NewCSVReader(paths []string, options ...func(*CSVReader)) *CSVReader {
	r := CSVReader{
		paths:  paths,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// ShardReader creates a reader over shards.
func ShardReader(shards []Shard, options ...func(*CSVReader)) *CSVReader {
	paths := make([]string, len(shards))
	for i, s := range shards {
		paths[i] = s.Path
	}
	return NewCSVReader(paths, options...)
}

func (r *CSVReader) openNext() error {
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", r.path, err)
		}
		r.file = nil
	}
	if len(r.paths) == 0 {
		return io.EOF
	}

	r.path, r.paths = r.paths[0], r.paths[1:]
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("opening shard: %w", err)
	}
	r.file = f
	r.csv = csv.NewReader(f)
	r.csv.FieldsPerRecord = -1
	r.csv.ReuseRecord = true
	r.line = 1

	header, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty shard: %w", r.path, ErrHeaderMismatch)
		}
		return fmt.Errorf("%s: reading header: %w", r.path, err)
	}
	if !record.HeaderMatches(header) {
		return fmt.Errorf("%s: %w", r.path, ErrHeaderMismatch)
	}
	return nil
}

// Next advances to the next record, moving on to the next shard when the
// current one is exhausted.
func (r *CSVReader) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}

	for {
		select {
		case <-ctx.Done():
			r.err = ctx.Err()
			return false
		default:
		}

		if r.csv == nil || r.file == nil {
			if err := r.openNext(); err != nil {
				if !errors.Is(err, io.EOF) {
					r.err = err
				}
				r.csv = nil
				return false
			}
		}

		row, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			r.csv = nil
			if err = r.file.Close(); err != nil {
				r.err = fmt.Errorf("closing %s: %w", r.path, err)
				return false
			}
			r.file = nil
			continue
		}
		r.line++

		var rec record.Record
		if err == nil {
			rec, err = record.ParseRow(row)
		}
		if err != nil {
			// a malformed last row is a write cut short by a power loss
			if r.atEOF() {
				r.truncated++
				r.logger.Warn("torn row skipped",
					slog.String("shard", r.path),
					slog.Int("line", r.line),
					slog.String("error", err.Error()))
				continue
			}
			r.err = fmt.Errorf("%s line %d: %w", r.path, r.line, err)
			return false
		}
		r.current = rec
		return true
	}
}

// atEOF reports whether the open shard has no more rows.
func (r *CSVReader) atEOF() bool {
	_, err := r.csv.Read()
	return errors.Is(err, io.EOF)
}

// Truncated returns the number of torn final rows skipped so far.
func (r *CSVReader) Truncated() int64 {
	return r.truncated
}

// Current returns the record read by the last successful Next.
func (r *CSVReader) Current() record.Record {
	return r.current
}

// Error returns the error that stopped the iteration, if any.
func (r *CSVReader) Error() error {
	return r.err
}

// Close releases the open shard.
func (r *CSVReader) Close() error {
	r.paths = nil
	r.csv = nil
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
