package storage

import (
	"context"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// Store provides an interface for managing sensor dataset storage operations.
// It handles missions and their sensor records. All operations that write to
// the database should be considered atomic.
type Store interface {
	// CreateMission registers a new mission and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - source: Where the records come from (e.g., the shard directory)
	//   - config: Optional mission configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - missionID: Unique identifier for the created mission
	//   - error: If mission creation fails or context is cancelled
	CreateMission(ctx context.Context, source string, config any) (missionID int64, err error)

	// Mission retrieves a specific mission by its ID.
	Mission(ctx context.Context, id int64) (mission *Mission, err error)

	// Missions returns all missions stored in the database, oldest first.
	Missions(ctx context.Context) (missions []*Mission, err error)

	// StoreRecords saves sensor records for a mission. All records are
	// stored in a single atomic transaction.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - missionID: ID of the mission the records belong to
	//   - records: Records in acquisition order
	//
	// Returns:
	//   - error: If storage fails or context is cancelled
	StoreRecords(ctx context.Context, missionID int64, records []record.Record) error

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}

// RecordReader provides an iterator-based interface for reading the records
// of one mission, ordered by time.
type RecordReader interface {
	// Mission returns metadata about the mission this reader is accessing.
	Mission() *Mission

	// Next advances the iterator and returns true if there is another record
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current record in the iteration.
	Current() record.Record

	// Error returns any error that occurred during iteration.
	Error() error

	// Close releases any resources associated with the reader.
	Close() error
}
