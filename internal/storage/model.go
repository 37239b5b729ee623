package storage

import (
	"time"
)

// Mission is a set of records imported from one acquisition run.
type Mission struct {
	ID        int64
	CreatedAt time.Time
	Source    string
	Config    *string
}
