package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/compliance-decoder/internal/adapters/mcp"
	"github.com/kirillkom/compliance-decoder/internal/bootstrap"
	"github.com/kirillkom/compliance-decoder/internal/config"
	"github.com/kirillkom/compliance-decoder/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// stdout carries protocol frames only.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(cfg, nil, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	server := mcpadapter.NewServer(core.Catalog, core.Analyzer, logger)
	logger.Info("mcp_stdio_started", "version", version)
	if err := server.ServeStdio(ctx, version, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
