// Package dataset reads the CSV shards written by the logger and merges them
// into a single dataset.
package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var ErrNoShards = errors.New("no shards found")

// Shard is one file of a rotated dataset.
type Shard struct {
	Index int
	Path  string
	Size  int64
}

// Discover returns the shards named <baseName><index>.csv in dir, ordered by
// index. Gaps in the sequence are allowed.
func Discover(dir, baseName string) ([]Shard, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(baseName) + `(\d+)\.csv$`)

	var shards []Shard
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("inspecting %s: %w", e.Name(), err)
		}
		shards = append(shards, Shard{
			Index: idx,
			Path:  filepath.Join(dir, e.Name()),
			Size:  info.Size(),
		})
	}

	if len(shards) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, baseName+"*.csv"), ErrNoShards)
	}

	sort.Slice(shards, func(i, j int) bool {
		return shards[i].Index < shards[j].Index
	})
	return shards, nil
}
