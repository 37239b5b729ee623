package acquisition

import (
	"fmt"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// Batch is an in-memory buffer of records waiting to be persisted. It is
// owned by a single Task and is not safe for concurrent use.
type Batch struct {
	records  []record.Record
	capacity int
}

// NewBatch creates a batch that reports full once it holds capacity records.
func NewBatch(capacity int) (*Batch, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid batch capacity: %d", capacity)
	}
	return &Batch{
		records:  make([]record.Record, 0, capacity),
		capacity: capacity,
	}, nil
}

// Append adds a record to the end of the batch.
func (b *Batch) Append(r record.Record) {
	b.records = append(b.records, r)
}

// IsFull returns true if the batch has reached its capacity.
func (b *Batch) IsFull() bool {
	return len(b.records) >= b.capacity
}

// Size returns the number of buffered records.
func (b *Batch) Size() int {
	return len(b.records)
}

// Rows returns the buffered records encoded as CSV rows, oldest first.
func (b *Batch) Rows() [][]string {
	rows := make([][]string, len(b.records))
	for i, r := range b.records {
		rows[i] = r.Row()
	}
	return rows
}

// Records returns a copy of the buffered records.
func (b *Batch) Records() []record.Record {
	return append([]record.Record(nil), b.records...)
}

// Clear removes all records, keeping the allocated storage.
func (b *Batch) Clear() {
	b.records = b.records[:0]
}
