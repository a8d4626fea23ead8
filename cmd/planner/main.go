package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrianliechti/forge/config"
	"github.com/adrianliechti/forge/pkg/otel"
	"github.com/adrianliechti/forge/pkg/planner/custom"

	"google.golang.org/grpc"
)

var version = "dev"

// planner exposes a configured planner as a gRPC service that forge servers
// reach through a custom planner with a grpc:// url.
func main() {
	configFlag := flag.String("config", "config.yaml", "config file")
	addressFlag := flag.String("address", ":50051", "listen address")
	plannerFlag := flag.String("planner", "", "planner id")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "forge-planner", version)

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

	p, err := cfg.Planner(*plannerFlag)

	if err != nil {
		slog.Error("planner not available", "planner", *plannerFlag, "error", err)
		os.Exit(1)
	}

	l, err := net.Listen("tcp", *addressFlag)

	if err != nil {
		slog.Error("failed to listen", "address", *addressFlag, "error", err)
		os.Exit(1)
	}

	s := grpc.NewServer()
	custom.Register(s, p)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	slog.Info("planner listening", "address", *addressFlag, "planner", *plannerFlag)

	if err := s.Serve(l); err != nil {
		slog.Error("planner stopped", "error", err)
		os.Exit(1)
	}
}
