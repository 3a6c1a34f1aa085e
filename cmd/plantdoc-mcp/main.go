// plantdoc-mcp is a standalone MCP server for the plant disease knowledge
// base. It serves catalog, favorites, gallery and alert tools over stdio
// and can refresh the dataset and bulletin feeds in the background.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/logging"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "./config/config.yaml", "config file path")
	dbPath := flag.String("db", "", "path to SQLite database (overrides config)")
	userID := flag.Int64("user", 1, "default user ID for favorites and history")
	interval := flag.Duration("refresh", 0, "background refresh interval (0 disables)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plantdoc-mcp: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// stdout carries the protocol; logs go to stderr
	logger, closeLog, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plantdoc-mcp: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	engine, err := plantdoc.NewEngine(plantdoc.EngineConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("create engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.EnsureUser(*userID, fmt.Sprintf("user%d", *userID)); err != nil {
		logger.Error("ensure user", "user", *userID, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Reload(ctx)

	ref := newRefresher(engine, cfg.Alerts.Feeds, *interval, logger)
	if *interval > 0 {
		ref.start(ctx)
		defer ref.stop()
	}

	srv := newServer(engine, *userID, ref, version, logger)
	if err := srv.run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, or uses defaults when it does not exist.
func loadConfig(path string) (*storage.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := storage.DefaultConfig()
		return cfg, cfg.ApplyEnv()
	}
	return storage.LoadConfig(path)
}
