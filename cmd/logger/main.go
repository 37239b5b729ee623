package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/geomag-logger/cmd/logger/app"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	config, err := app.NewConfigFromCLI()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	var logLevel slog.LevelVar
	diag, logFile, err := app.OpenLog(config.Settings, &logLevel, os.Stdout)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, diag); err != nil {
		diag.Error(err.Error())

		cancel()
		_ = logFile.Close()
		os.Exit(1)
	}
}
