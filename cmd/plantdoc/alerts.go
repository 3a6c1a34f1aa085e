package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matthewjhunter/plantdoc"
	"github.com/spf13/cobra"
)

func alertsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Follow plant-protection bulletin feeds",
	}

	var title string
	addFeed := &cobra.Command{
		Use:   "add-feed <url>",
		Short: "Subscribe to a bulletin feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			id, err := engine.AddFeed(args[0], title)
			if err != nil {
				return err
			}
			return newFormatter().OutputMessage("feed_added", fmt.Sprintf("Subscribed to %s (feed %d)", args[0], id),
				map[string]any{"feed_id": id, "url": args[0]})
		},
	}
	addFeed.Flags().StringVarP(&title, "title", "t", "", "feed title (default: the URL)")
	cmd.AddCommand(addFeed)

	cmd.AddCommand(&cobra.Command{
		Use:   "import-opml <opml-file>",
		Short: "Subscribe to every feed in an OPML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			n, err := engine.ImportOPML(args[0])
			if err != nil {
				return fmt.Errorf("failed to import OPML: %w", err)
			}
			return newFormatter().OutputMessage("opml_imported", fmt.Sprintf("Imported %d feeds from %s", n, args[0]),
				map[string]any{"feeds": n})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "feeds",
		Short: "List feed subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			feeds, err := engine.Feeds()
			if err != nil {
				return err
			}
			return newFormatter().OutputFeeds(feeds)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "fetch",
		Short: "Fetch every feed and tag new alerts with catalog diseases",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := subscribeConfigFeeds(engine); err != nil {
				return err
			}
			stats, err := engine.FetchAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return newFormatter().OutputFetchStats(stats)
		},
	})

	var limit int
	var mine bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			var alerts []plantdoc.Alert
			if mine {
				alerts, err = engine.AlertsForUser(userID, limit)
			} else {
				alerts, err = engine.Alerts(limit)
			}
			if err != nil {
				return err
			}
			return newFormatter().OutputAlerts(alerts)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of alerts to show")
	list.Flags().BoolVarP(&mine, "mine", "m", false, "only alerts that mention a favorite disease")
	cmd.AddCommand(list)
	return cmd
}

// subscribeConfigFeeds makes sure the feeds listed in the config file are
// subscribed.
func subscribeConfigFeeds(engine *plantdoc.Engine) error {
	for _, url := range cfg.Alerts.Feeds {
		if _, err := engine.AddFeed(url, ""); err != nil {
			return fmt.Errorf("failed to add configured feed %s: %w", url, err)
		}
	}
	return nil
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <disease-id> <question>",
		Short: "Ask the advisor model about a disease",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			question := strings.Join(args[1:], " ")
			answer, err := engine.Ask(cmd.Context(), userID, id, question)
			if err != nil {
				return err
			}
			d, _ := engine.Disease(id)
			return newFormatter().OutputAnswer(d, question, answer)
		},
	}
}

func similarCmd() *cobra.Command {
	var k int
	var text string
	cmd := &cobra.Command{
		Use:   "similar [disease-id]",
		Short: "Rank diseases by embedding similarity to a disease or to --text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && text == "" {
				return fmt.Errorf("give a disease ID or --text")
			}
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			var similar []plantdoc.SimilarDisease
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				similar, err = engine.Similar(cmd.Context(), id, k)
				if err != nil {
					return err
				}
			} else {
				similar, err = engine.SemanticSearch(cmd.Context(), text, k)
				if err != nil {
					return err
				}
			}
			return newFormatter().OutputSimilar(similar)
		},
	}
	cmd.Flags().IntVarP(&k, "count", "k", 5, "number of results")
	cmd.Flags().StringVar(&text, "text", "", "free-text description to rank against")
	return cmd
}

func triageCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "triage <field description>",
		Short: "Ask the advisor model which diseases best explain what you see",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			matches, err := engine.Triage(cmd.Context(), userID, strings.Join(args, " "), ff.filter(""))
			if err != nil {
				return err
			}
			return newFormatter().OutputTriage(matches)
		},
	}
	ff.bind(cmd)
	return cmd
}

func promptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show or override the advisor prompt templates (advisor, triage)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <type>",
		Short: "Print the prompt template in effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			tpl, err := engine.Prompt(userID, args[0])
			if err != nil {
				return err
			}
			fmt.Println(tpl)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <type> <template-file>",
		Short: "Override a prompt template (- reads stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[1] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}

			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.SetPrompt(userID, args[0], string(data)); err != nil {
				return err
			}
			return newFormatter().OutputMessage("prompt_set", "Stored "+args[0]+" prompt", map[string]any{"type": args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset <type>",
		Short: "Remove a prompt override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.ResetPrompt(userID, args[0]); err != nil {
				return err
			}
			return newFormatter().OutputMessage("prompt_reset", "Reset "+args[0]+" prompt", map[string]any{"type": args[0]})
		},
	})
	return cmd
}
