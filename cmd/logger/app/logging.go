package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// OpenLog opens the diagnostics log file for appending and returns a logger
// writing to both the file and stdout. The returned closer releases the file.
func OpenLog(settings Settings, level *slog.LevelVar, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	lvl, err := settings.Level()
	if err != nil {
		return nil, nil, err
	}
	level.Set(lvl)

	if settings.LogFile == "" {
		return slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level})), io.NopCloser(nil), nil
	}

	if err = os.MkdirAll(filepath.Dir(settings.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(f, stdout)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), f, nil
}
