package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/geomag-logger/internal/acquisition"
	"github.com/roman-kulish/geomag-logger/internal/cputemp"
	"github.com/roman-kulish/geomag-logger/internal/display"
	"github.com/roman-kulish/geomag-logger/internal/gate"
	"github.com/roman-kulish/geomag-logger/internal/mission"
	"github.com/roman-kulish/geomag-logger/internal/orbit"
	"github.com/roman-kulish/geomag-logger/internal/record"
	"github.com/roman-kulish/geomag-logger/internal/sensehat"
	"github.com/roman-kulish/geomag-logger/internal/shard"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	hat, err := sensehat.Open(byte(config.Sensors.I2CBus), config.Sensors.Framebuffer, sensehat.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open sense hat: %w", err)
	}
	defer closeWithError(hat, &err)

	provider, err := createProvider(&config.Orbit, logger)
	if err != nil {
		return fmt.Errorf("failed to create position provider: %w", err)
	}

	writer, err := createWriter(&config.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}

	sources := acquisition.Sources{
		Position: provider,
		IMU:      hat.IMU,
		Ambient:  hat.Thermometer,
		CPU:      cputemp.New(config.Sensors.ThermalZone),
	}
	task, err := acquisition.NewTask(sources, writer,
		acquisition.WithBatchSize(config.Storage.BatchSize),
		acquisition.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create acquisition task: %w", err)
	}

	loop, err := createLoop(config, task, display.NewAnimator(hat.Display), hat.Display, logger)
	if err != nil {
		return fmt.Errorf("failed to create mission loop: %w", err)
	}

	logger.Info("mission configured",
		slog.Group("mission",
			slog.Duration("length", config.Mission.MissionLength()),
			slog.Duration("acquireInterval", time.Duration(config.Mission.AcquireInterval)),
			slog.Duration("displayInterval", time.Duration(config.Mission.DisplayInterval)),
		),
		slog.Group("storage",
			slog.String("path", writer.Path()),
			slog.Int("maxShards", config.Storage.MaxShards),
			slog.String("maxShardSize", config.Storage.MaxShardSize.String()),
			slog.Bool("flushOnExit", config.Storage.FlushOnExit),
		),
		slog.String("satellite", provider.Name()))

	err = loop.Run(ctx)

	logger.Info("storage state",
		slog.String("state", writer.State().String()),
		slog.Int("shard", writer.Index()),
		slog.String("pending", humanize.Comma(int64(task.Pending()))))

	return err
}

func createProvider(config *OrbitConfig, logger *slog.Logger) (*orbit.Provider, error) {
	var tle orbit.TLE
	var err error
	if config.Line1 != "" {
		tle, err = orbit.ParseTLE(config.Name, config.Line1, config.Line2)
	} else {
		tle, err = orbit.LoadTLE(config.TLEFile, config.Name)
	}
	if err != nil {
		return nil, err
	}

	return orbit.NewProvider(tle, orbit.WithLogger(logger))
}

func createWriter(config *StorageConfig, logger *slog.Logger) (*shard.Writer, error) {
	if err := os.MkdirAll(config.DataDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return shard.New(config.DataDirectory, config.BaseName, record.Header,
		shard.WithMaxShards(config.MaxShards),
		shard.WithMaxShardSize(int64(config.MaxShardSize)),
		shard.WithLogger(logger))
}

func createLoop(config *Config, task *acquisition.Task, animator mission.Animator, surface mission.Clearer, logger *slog.Logger) (*mission.Loop, error) {
	gates := mission.Gates{
		Mission:     gate.New(config.Mission.MissionLength()),
		Acquisition: gate.New(time.Duration(config.Mission.AcquireInterval)),
		Display:     gate.New(time.Duration(config.Mission.DisplayInterval)),
	}

	opts := []func(*mission.Loop){
		mission.WithLogger(logger),
		mission.WithPollInterval(time.Duration(config.Mission.PollInterval)),
	}
	if config.Storage.FlushOnExit {
		opts = append(opts, mission.WithFlushOnExit(task))
	}

	return mission.NewLoop(gates, task, animator, surface, opts...)
}

// closeWithError closes cl and adds its failure to *err.
func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to close: %w", cErr))
	}
}
