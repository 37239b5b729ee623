package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/analysis"
	"github.com/roman-kulish/geomag-logger/internal/dataset"
	"github.com/roman-kulish/geomag-logger/internal/geomag"
	"github.com/roman-kulish/geomag-logger/internal/orbit"
	"github.com/roman-kulish/geomag-logger/internal/storage"
)

const mapFileName = "difference_map"

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	model, err := loadModel(config)
	if err != nil {
		return err
	}

	tle, err := orbit.LoadTLE(config.TLEFile, config.Satellite)
	if err != nil {
		return fmt.Errorf("loading elements: %w", err)
	}
	provider, err := orbit.NewProvider(tle, orbit.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating position provider: %w", err)
	}

	analyzer, err := analysis.NewAnalyzer(model, provider, analysis.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("analysis configuration",
		slog.String("model", model.Name),
		slog.Float64("epoch", model.Epoch),
		slog.Int("degree", model.Degree()),
		slog.String("satellite", provider.Name()))

	it, closeInput, err := openInput(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeInput()

	logger.Info("joining records, hold on tight, it will take a while")

	samples, err := analyzer.Join(ctx, it)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples to analyze")
	}

	if err = os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if err = writePlots(samples, config, logger); err != nil {
		return err
	}

	m := NewDiffMap(samples, config.PixelsPerDeg, config.MinDiff, config.MaxDiff)
	logger.Info("finished analysis", slog.Any("summary", m.Summary))

	return writeMap(m, config, logger)
}

func loadModel(config *Config) (model *geomag.Model, err error) {
	if config.ModelFile == "" {
		model, err = geomag.WMM2020()
	} else {
		model, err = geomag.LoadCOFFile(config.ModelFile)
	}
	if err != nil {
		return nil, fmt.Errorf("loading field model: %w", err)
	}
	return model, nil
}

// openInput returns the record iterator selected by the configuration and
// a function releasing it.
func openInput(ctx context.Context, config *Config, logger *slog.Logger) (dataset.Iterator, func(), error) {
	if config.DataDir != "" {
		shards, err := dataset.Discover(config.DataDir, config.BaseName)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("reading shards", slog.String("dir", config.DataDir), slog.Int("shards", len(shards)))

		r := dataset.ShardReader(shards, dataset.WithLogger(logger))
		return r, func() { _ = r.Close() }, nil
	}

	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	var opts []storage.ReaderOption
	var filters []any
	if config.StartTime != nil {
		opts = append(opts, storage.WithStartTime(config.StartTime.UTC()))
		filters = append(filters, slog.String("start", config.StartTime.UTC().Format(time.DateTime)))
	}
	if config.EndTime != nil {
		opts = append(opts, storage.WithEndTime(config.EndTime.UTC()))
		filters = append(filters, slog.String("end", config.EndTime.UTC().Format(time.DateTime)))
	}
	logger.Info("iterator configuration", filters...)

	store := storage.NewSqliteStore(config.DBPath, storage.WithLogger(logger))
	rr, err := store.ReadRecords(ctx, config.MissionID, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	return rr, func() {
		_ = rr.Close()
		_ = store.Close()
	}, nil
}

func writePlots(samples []analysis.Sample, config *Config, logger *slog.Logger) error {
	plots, err := comparisonPlots(samples)
	if err != nil {
		return err
	}

	for name, p := range plots {
		path := config.path(name)
		if err = p.Save(plotWidth, plotHeight, path); err != nil {
			return fmt.Errorf("saving %s: %w", name, err)
		}
		logger.Info("plot saved", slog.String("destination", path))
	}
	return nil
}

func writeMap(m *DiffMap, config *Config, logger *slog.Logger) (err error) {
	path := config.path(fmt.Sprintf("%s.%s", mapFileName, config.Format))

	logger.Info("rendering map",
		slog.Group("image",
			slog.String("destination", path),
			slog.String("format", string(config.Format)),
			slog.Int("width", m.Grid.Width),
			slog.Int("height", m.Grid.Height),
			slog.Float64("minDiff", m.Min),
			slog.Float64("maxDiff", m.Max),
		))

	img, err := m.Image(!config.NoAnnotations)
	if err != nil {
		return fmt.Errorf("rendering map: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return encodeImage(out, img, config.Format)
}
