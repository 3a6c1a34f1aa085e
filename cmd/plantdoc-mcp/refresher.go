package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/matthewjhunter/plantdoc"
)

// refreshResult reports one reload-and-fetch cycle.
type refreshResult struct {
	Load   plantdoc.LoadResult `json:"load"`
	Alerts plantdoc.FetchStats `json:"alerts"`
}

// refresher reloads the dataset and fetches bulletin feeds in the background.
type refresher struct {
	engine   *plantdoc.Engine
	feeds    []string // configured feed URLs, subscribed before each fetch
	interval time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	done chan struct{}
}

func newRefresher(engine *plantdoc.Engine, feeds []string, interval time.Duration, logger *slog.Logger) *refresher {
	return &refresher{
		engine:   engine,
		feeds:    feeds,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// start launches the background loop. It refreshes on each tick of the
// configured interval; main has already loaded the dataset once.
func (r *refresher) start(ctx context.Context) {
	go r.loop(ctx)
	r.logger.Info("refresher started", "interval", r.interval)
}

func (r *refresher) stop() {
	close(r.done)
	r.logger.Info("refresher stopped")
}

// refresh runs a single cycle. Used by the loop and the refresh_now tool.
func (r *refresher) refresh(ctx context.Context) (refreshResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result refreshResult
	result.Load = r.engine.Reload(ctx)

	for _, url := range r.feeds {
		if _, err := r.engine.AddFeed(url, ""); err != nil {
			return result, fmt.Errorf("add configured feed %s: %w", url, err)
		}
	}

	stats, err := r.engine.FetchAlerts(ctx)
	if err != nil {
		return result, err
	}
	result.Alerts = stats

	r.logger.Info("refresh completed",
		"diseases", result.Load.Diseases.Count, "diseases_fallback", result.Load.Diseases.Fallback,
		"images", result.Load.Images.Count, "feeds", stats.Feeds, "new_alerts", stats.Stored,
		"tagged", stats.Tagged, "errors", stats.Errors)
	return result, nil
}

func (r *refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.refresh(ctx); err != nil {
				r.logger.Error("refresh failed", "error", err)
			}
		}
	}
}
