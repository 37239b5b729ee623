package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/geomag-logger/internal/dataset"
	"github.com/roman-kulish/geomag-logger/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if config.List {
		return listMissions(ctx, config, logger)
	}

	shards, err := dataset.Discover(config.DataDir, config.BaseName)
	if err != nil {
		return err
	}

	var total int64
	for _, s := range shards {
		total += s.Size
		logger.Debug("shard found", slog.Int("index", s.Index), slog.String("path", s.Path), slog.String("size", humanize.IBytes(uint64(s.Size))))
	}
	logger.Info("shards discovered",
		slog.String("dir", config.DataDir),
		slog.Int("shards", len(shards)),
		slog.String("size", humanize.IBytes(uint64(total))))

	if config.OutputFile != "" {
		if err = mergeShards(ctx, shards, config.OutputFile, logger); err != nil {
			return err
		}
	}
	if config.DBPath != "" {
		if err = importShards(ctx, shards, config, logger); err != nil {
			return err
		}
	}
	return nil
}

func mergeShards(ctx context.Context, shards []dataset.Shard, path string, logger *slog.Logger) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	r := dataset.ShardReader(shards, dataset.WithLogger(logger))
	defer r.Close()

	stats, err := dataset.Merge(ctx, r, out)
	if err != nil {
		return fmt.Errorf("merging shards: %w", err)
	}

	logger.Info("shards merged", slog.String("destination", path), slog.Any("stats", stats))
	return nil
}

func importShards(ctx context.Context, shards []dataset.Shard, config *Config, logger *slog.Logger) error {
	var missionConfig any
	if config.ConfigFile != "" {
		b, err := os.ReadFile(config.ConfigFile)
		if err != nil {
			return fmt.Errorf("reading mission configuration: %w", err)
		}
		missionConfig = b
	}

	store := storage.NewSqliteStore(config.DBPath, storage.WithLogger(logger))
	defer store.Close()

	missionID, err := store.CreateMission(ctx, config.Source, missionConfig)
	if err != nil {
		return err
	}

	r := dataset.ShardReader(shards, dataset.WithLogger(logger))
	defer r.Close()

	logger.Info("importing records, hold on tight, it will take a while", slog.Int64("mission", missionID))

	stats, err := dataset.Import(ctx, r, store, missionID, config.BatchSize)
	if err != nil {
		return fmt.Errorf("importing shards: %w", err)
	}

	logger.Info("shards imported",
		slog.String("destination", config.DBPath),
		slog.Int64("mission", missionID),
		slog.Any("stats", stats))
	return nil
}

func listMissions(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	missions, err := store.Missions(ctx)
	if err != nil {
		return err
	}

	for _, m := range missions {
		logger.Info("mission",
			slog.Int64("id", m.ID),
			slog.String("created", m.CreatedAt.Local().Format(time.DateTime)),
			slog.String("source", m.Source))
	}
	logger.Info("missions listed", slog.Int("count", len(missions)))
	return nil
}
