package app

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/record"
	"github.com/roman-kulish/geomag-logger/internal/shard"
	"github.com/roman-kulish/geomag-logger/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeMission(t *testing.T, dir string, n int) {
	t.Helper()

	// small shards so the mission spans several files
	w, err := shard.New(dir, defaultBaseName, record.Header, shard.WithMaxShardSize(1024))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2022, 4, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := record.Record{
			Timestamp:    start.Add(time.Duration(i) * 100 * time.Millisecond).UnixNano(),
			Magnetometer: record.Vector{X: float64(i)},
			Position:     record.Position{Latitude: 1, Longitude: 2, Elevation: 420},
		}
		if err = w.Append(r.Row()); err != nil {
			t.Fatal(err)
		}
	}
	if w.Index() == 0 {
		t.Fatal("expected more than one shard")
	}
}

func TestRun_MergeAndImport(t *testing.T) {
	dir := t.TempDir()
	writeMission(t, dir, 20)

	cfgPath := filepath.Join(dir, "logger.yaml")
	if err := os.WriteFile(cfgPath, []byte("mission:\n  duration: 1h\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "merged.csv")
	db := filepath.Join(t.TempDir(), "data.db")
	config := NewConfig()
	config.DataDir = dir
	config.OutputFile = out
	config.DBPath = db
	config.Source = "test"
	config.ConfigFile = cfgPath
	config.BatchSize = 7

	ctx := context.Background()
	if err := Run(ctx, config, discard); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 21 {
		t.Fatalf("expected header and 20 rows, got %d", len(rows))
	}
	if !record.HeaderMatches(rows[0]) {
		t.Errorf("unexpected header %v", rows[0])
	}

	store := storage.NewSqliteStore(db)
	defer store.Close()

	m, err := store.Mission(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if m.Source != "test" || m.Config == nil || *m.Config != "mission:\n  duration: 1h\n" {
		t.Errorf("unexpected mission %+v", m)
	}

	rr, err := store.ReadRecords(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer rr.Close()

	var n int
	for rr.Next(ctx) {
		if rr.Current().Magnetometer.X != float64(n) {
			t.Errorf("record %d out of order", n)
		}
		n++
	}
	if err = rr.Error(); err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Errorf("expected 20 imported records, got %d", n)
	}
}

func TestRun_NoShards(t *testing.T) {
	config := NewConfig()
	config.DataDir = t.TempDir()
	config.OutputFile = filepath.Join(t.TempDir(), "merged.csv")

	if err := Run(context.Background(), config, discard); err == nil {
		t.Error("expected error for an empty directory")
	}
}

func TestParseFlags(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"merge", []string{"-dir", "/data", "-o", "merged.csv"}, false},
		{"import", []string{"-dir", "/data", "-db", "data.db"}, false},
		{"list", []string{"-list", "-db", "data.db"}, false},
		{"list without db", []string{"-list"}, true},
		{"no dir", []string{"-o", "merged.csv"}, true},
		{"no destination", []string{"-dir", "/data"}, true},
		{"zero batch", []string{"-dir", "/data", "-db", "data.db", "-batch", "0"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := flag.NewFlagSet(tc.name, flag.ContinueOnError)
			fs.SetOutput(io.Discard)

			c, err := parseFlags(fs, tc.args)
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if err == nil && !c.List && c.Source != "/data" {
				t.Errorf("source must default to the shard directory, got %q", c.Source)
			}
		})
	}
}
