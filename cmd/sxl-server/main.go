// cmd/sxl-server/main.go: Standalone HTTP server for spacetime manifolds
//
// Exposes manifold sessions as a tool-call endpoint for agent frameworks.
//
// Usage:
//
//	go run ./cmd/sxl-server -config sxl.yaml -addr :8080
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/njchilds90/spacetime/config"
	"github.com/njchilds90/spacetime/server"
	"github.com/njchilds90/spacetime/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	tel, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	s := server.New(
		server.WithCatalog(catalog),
		server.WithUnits(cfg.Units),
		server.WithNames(cfg.Names),
		server.WithMaxManifolds(cfg.Server.MaxManifolds),
		server.WithMetricsHandler(tel.MetricsHandler()),
		server.WithDebug(cfg.Log.Level == "debug"),
		server.WithLogger(logger),
	)
	logger.Info("catalog loaded", "entries", catalog.Len())
	return s.ListenAndServe(ctx, cfg.Server.Addr)
}
