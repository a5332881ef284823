package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/credgate/internal/audit"
	"github.com/rendis/credgate/internal/envelope"
	"github.com/rendis/credgate/pkg/mcp"
)

// runServe exposes the guard tools over MCP stdio and keeps the audit log
// pruned. It blocks until stdin closes or a termination signal arrives.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner, keys, err := buildScanner()
	if err != nil {
		logger.Error("policy load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log, err := audit.NewLibSQLLog("file:" + cfg.DBPath)
	if err != nil {
		logger.Error("cannot open audit log", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer log.Close()
	if err := log.Migrate(ctx); err != nil {
		logger.Error("audit migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sweeper, err := audit.NewSweeper(log, cfg.SweepSchedule, cfg.retention(), logger)
	if err != nil {
		logger.Error("invalid sweep schedule", slog.String("error", err.Error()))
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := mcp.NewGuardServer(mcp.GuardServerDeps{
		Scanner:  scanner,
		Keys:     keys,
		Keychain: envelope.NewKeychain(keyPath()),
		Audit:    log,
		Logger:   logger,
	})

	logger.Info("credgate MCP server listening on stdio",
		slog.String("version", version),
		slog.String("db", cfg.DBPath))

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("credgate MCP server stopped")
}
