package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muselink/muselink/internal/daemon"
	_ "github.com/muselink/muselink/internal/modules/playback"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/muselink
var version = "dev"

func main() {
	// Configure JSON logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	slog.Info("starting muselink", "version", version)

	// Load configuration
	cfg, err := daemon.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create and configure daemon
	d := daemon.NewDaemon(cfg)
	d.LoadModules()

	// Start daemon
	if err := d.Start(); err != nil {
		slog.Error("failed to start daemon", "error", err)
		os.Exit(1)
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("received termination signal, shutting down")
	if err := d.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}

	slog.Info("completed daemon shutdown")
	os.Exit(0)
}
