// Package main is the entry point for eventd, the reference backend that the
// client-side models talk to over HTTP.
//
// The main package is kept minimal. Its job is to:
// 1. Read configuration from environment variables
// 2. Create the logger and make sure the database directory exists
// 3. Start the server
//
// All actual logic lives in imported packages (internal/server, internal/backend, etc.).
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sakif/eventhub/internal/config"
	"github.com/sakif/eventhub/internal/server"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		// No configured logger yet; use the default one.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// tint writes the same slog records as slog.NewTextHandler, with colour
	// and a short timestamp for reading in a terminal.
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	// os.MkdirAll is `mkdir -p`. ":memory:" has no directory to create.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
