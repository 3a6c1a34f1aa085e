package main

import (
	"context"
	"os"
	"time"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/notify"
	"github.com/spf13/cobra"
)

func daemonCmd() *cobra.Command {
	var interval time.Duration
	var watch bool
	var notifyFollowed bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Reload the dataset and fetch alerts in a loop",
		Long: `Continuously reload the dataset and fetch bulletin feeds on a timer.
New alerts that mention one of the user's favorite diseases are printed as
notifications. With --watch, a local data directory is also reloaded as soon
as its files change. Handles SIGINT/SIGTERM for graceful shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if interval <= 0 {
				interval = cfg.Alerts.RefreshInterval
			}
			if interval <= 0 {
				interval = 30 * time.Minute
			}
			if watch {
				cfg.Data.Watch = true
			}

			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if cfg.Data.Watch {
				go func() {
					if err := engine.Watch(ctx); err != nil && ctx.Err() == nil {
						logger.Error("data watch stopped", "error", err)
					}
				}()
			}

			notifier := notify.NewNotifier(notifyFollowed, os.Stdout)
			logger.Info("daemon starting", "interval", interval, "user", userID)

			cycle := 1
			for {
				start := time.Now()
				if err := runCycle(ctx, engine, notifier); err != nil {
					logger.Error("cycle failed", "cycle", cycle, "error", err)
				} else {
					logger.Info("cycle completed", "cycle", cycle, "took", time.Since(start).Round(time.Millisecond))
				}
				cycle++

				timer := time.NewTimer(interval)
				select {
				case <-ctx.Done():
					timer.Stop()
					logger.Info("received shutdown signal, exiting")
					return nil
				case <-timer.C:
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "duration between cycles (default: alerts.refresh_interval)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload when files in the data directory change")
	cmd.Flags().BoolVar(&notifyFollowed, "notify", true, "print notifications for alerts about favorite diseases")
	return cmd
}

// runCycle reloads the dataset, fetches alerts and notifies about the ones
// the user follows.
func runCycle(ctx context.Context, engine *plantdoc.Engine, notifier *notify.Notifier) error {
	engine.Reload(ctx)

	if err := subscribeConfigFeeds(engine); err != nil {
		return err
	}
	if _, err := engine.FetchAlerts(ctx); err != nil {
		return err
	}
	if _, err := engine.NotifyFollowed(notifier, userID, 20); err != nil {
		return err
	}
	return nil
}
