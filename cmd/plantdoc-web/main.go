package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/logging"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "config file path")
	dbPath := flag.String("db", "", "path to SQLite database (overrides config)")
	addr := flag.String("addr", ":8080", "listen address")
	watch := flag.Bool("watch", false, "reload when files in the data directory change")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plantdoc-web: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, closeLog, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plantdoc-web: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	engine, err := plantdoc.NewEngine(plantdoc.EngineConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := engine.Reload(ctx)
	logger.Info("dataset loaded", "diseases", result.Diseases.Count, "images", result.Images.Count,
		"diseases_fallback", result.Diseases.Fallback, "images_fallback", result.Images.Fallback)

	if *watch || cfg.Data.Watch {
		go func() {
			if err := engine.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Error("data watch stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      logRequests(logger, recovery(logger, newRouter(engine, logger))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("stopped")
}

// loadConfig reads the config file, or uses defaults when it does not exist.
func loadConfig(path string) (*storage.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := storage.DefaultConfig()
		return cfg, cfg.ApplyEnv()
	}
	return storage.LoadConfig(path)
}
