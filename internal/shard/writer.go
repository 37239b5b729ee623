package shard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultMaxShards is the default number of shards a writer may create.
	DefaultMaxShards = 5

	// DefaultMaxShardSize is the default shard size ceiling in bytes.
	DefaultMaxShardSize int64 = 30 * humanize.MiByte

	fileExt = ".csv"
)

const (
	// NoActiveShard means the current shard has not been created yet; its
	// header is written by the next append.
	NoActiveShard State = iota

	// ShardOpen means the current shard exists and has its header.
	ShardOpen

	// CeilingReached means the shard count ceiling was hit and every further
	// append is discarded.
	CeilingReached
)

// State is the rotation state of a Writer.
type State int

func (s State) String() string {
	switch s {
	case NoActiveShard:
		return "no-active-shard"
	case ShardOpen:
		return "shard-open"
	case CeilingReached:
		return "ceiling-reached"
	default:
		return "unknown"
	}
}

// WithLogger sets the logger for the writer
func WithLogger(logger *slog.Logger) func(*Writer) {
	return func(w *Writer) {
		w.logger = logger.With(slog.String("shard", w.baseName))
	}
}

// WithMaxShards sets the number of shards after which appends are dropped.
func WithMaxShards(n int) func(*Writer) {
	return func(w *Writer) {
		w.maxShards = n
	}
}

// WithMaxShardSize sets the size in bytes above which the writer rolls over
// to the next shard.
func WithMaxShardSize(size int64) func(*Writer) {
	return func(w *Writer) {
		w.maxShardSize = size
	}
}

// Writer appends CSV rows to a bounded sequence of shard files named
// <baseName><index>.csv in a directory. Each shard starts with the header
// row. When a shard grows beyond the size ceiling the writer moves on to the
// next index; once maxShards shards are filled, appends become no-ops so the
// disk is never filled up.
//
// Every append opens, writes and closes the file, so rows already written
// survive an abrupt termination. Writer is not safe for concurrent use.
type Writer struct {
	dir      string
	baseName string
	header   []string

	maxShards    int
	maxShardSize int64

	index int
	state State

	logger *slog.Logger
}

// New creates a Writer. No file is touched until the first append.
func New(dir, baseName string, header []string, options ...func(*Writer)) (*Writer, error) {
	if baseName == "" {
		return nil, errors.New("base name required")
	}
	if len(header) == 0 {
		return nil, errors.New("header required")
	}

	w := Writer{
		dir:          dir,
		baseName:     baseName,
		header:       header,
		maxShards:    DefaultMaxShards,
		maxShardSize: DefaultMaxShardSize,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&w)
	}

	if w.maxShards <= 0 {
		return nil, fmt.Errorf("invalid shard ceiling: %d", w.maxShards)
	}
	if w.maxShardSize <= 0 {
		return nil, fmt.Errorf("invalid shard size ceiling: %d", w.maxShardSize)
	}

	return &w, nil
}

// Append writes a single row to the active shard.
func (w *Writer) Append(row []string) error {
	return w.AppendBatch([][]string{row})
}

// AppendBatch writes rows to the active shard in order. Filesystem errors
// are returned to the caller; reaching the shard ceiling is not an error.
func (w *Writer) AppendBatch(rows [][]string) (err error) {
	if w.state == CeilingReached || len(rows) == 0 {
		return nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if w.state == NoActiveShard {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	f, err := os.OpenFile(w.Path(), flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening shard: %w", err)
	}
	defer closeWithError(f, &err)

	cw := csv.NewWriter(f)
	if w.state == NoActiveShard {
		if err = cw.Write(w.header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err = cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}

	if w.state == NoActiveShard {
		w.state = ShardOpen
		w.logger.Info("shard created", slog.String("path", w.Path()), slog.Int("index", w.index))
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking shard size: %w", err)
	}
	if info.Size() > w.maxShardSize {
		w.rollover(info.Size())
	}

	return nil
}

// rollover advances to the next shard, or stops the writer when the shard
// ceiling is reached. The index only ever grows.
func (w *Writer) rollover(size int64) {
	w.logger.Info("shard full",
		slog.String("path", w.Path()),
		slog.String("size", humanize.IBytes(uint64(size))),
		slog.String("limit", humanize.IBytes(uint64(w.maxShardSize))))

	w.index++
	if w.index >= w.maxShards {
		w.state = CeilingReached
		w.logger.Warn("shard ceiling reached, further rows are discarded", slog.Int("shards", w.maxShards))
		return
	}

	w.state = NoActiveShard
}

// Path returns the path of the active shard.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, FileName(w.baseName, w.index))
}

// Index returns the index of the active shard.
func (w *Writer) Index() int {
	return w.index
}

// State returns the rotation state.
func (w *Writer) State() State {
	return w.state
}

// FileName returns the shard file name for a base name and index.
func FileName(baseName string, index int) string {
	return fmt.Sprintf("%s%d%s", baseName, index, fileExt)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
