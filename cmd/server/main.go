package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrianliechti/forge/config"
	"github.com/adrianliechti/forge/pkg/otel"
	"github.com/adrianliechti/forge/server"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "config.yaml", "config file")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if otel.EnableDebug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	shutdown, err := otel.Setup(ctx, "forge", version)

	if err != nil {
		slog.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	defer shutdown(context.Background())

	cfg, err := config.Parse(ctx, *configFlag)

	if err != nil {
		slog.Error("failed to load config", "path", *configFlag, "error", err)
		os.Exit(1)
	}

	defer cfg.Close()

	s, err := server.New(cfg)

	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := s.ListenAndServe(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
