package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/logging"
	"github.com/matthewjhunter/plantdoc/internal/output"
	"github.com/matthewjhunter/plantdoc/internal/storage"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/config.yaml"

var (
	configPath   string
	cfg          *storage.Config
	outputFormat string
	userID       int64
	logger       *slog.Logger
	closeLog     = func() error { return nil }
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "plantdoc",
		Short: "Plant disease knowledge base: search, compare and follow crop diseases",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := output.ParseFormat(outputFormat); err != nil {
				return err
			}
			return loadConfig()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "human", "output format: json, text, human")
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 1, "user ID whose favorites, compare list and history are used")

	rootCmd.AddCommand(initConfigCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(popularCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(galleryCmd())
	rootCmd.AddCommand(favoriteCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(alertsCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(triageCmd())
	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(daemonCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and sets up logging.
func loadConfig() error {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = storage.DefaultConfig()
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
	} else {
		loaded, err := storage.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	l, cleanup, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	logger = l
	closeLog = cleanup
	slog.SetDefault(logger)
	return nil
}

func newFormatter() *output.Formatter {
	return output.NewFormatter(output.Format(outputFormat))
}

// openEngine opens the database, makes sure the user exists and loads the
// configured dataset.
func openEngine(ctx context.Context) (*plantdoc.Engine, error) {
	engine, err := plantdoc.NewEngine(plantdoc.EngineConfigFrom(cfg, logger))
	if err != nil {
		return nil, err
	}
	if err := engine.EnsureUser(userID, fmt.Sprintf("user%d", userID)); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to ensure user %d: %w", userID, err)
	}
	result := engine.Reload(ctx)
	for _, s := range []catalog.SourceStatus{result.Diseases, result.Images} {
		if s.Fallback {
			logger.Warn("using built-in data", "source", s.Source, "error", s.Error)
		}
	}
	return engine, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid disease ID: %q", s)
	}
	return id, nil
}

// filterFlags binds the catalog filter flags shared by list, search and triage.
type filterFlags struct {
	severity      string
	crops         string
	pathogenTypes string
	conditions    string
}

func (ff *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.severity, "severity", "", "severity: low, medium, high")
	cmd.Flags().StringVar(&ff.crops, "crop", "", "comma-separated crops")
	cmd.Flags().StringVar(&ff.pathogenTypes, "pathogen-type", "", "comma-separated pathogen types")
	cmd.Flags().StringVar(&ff.conditions, "condition", "", "comma-separated conditions")
}

func (ff *filterFlags) filter(search string) plantdoc.Filter {
	return plantdoc.Filter{
		Severity:      ff.severity,
		Crops:         catalog.ParseList(ff.crops),
		PathogenTypes: catalog.ParseList(ff.pathogenTypes),
		Conditions:    catalog.ParseList(ff.conditions),
		Search:        search,
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Create a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("config file already exists: %s", configPath)
			}
			if err := storage.DefaultConfig().Save(configPath); err != nil {
				return err
			}
			fmt.Printf("Created default config at %s\n", configPath)
			return nil
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load the dataset from the configured source and report what was used",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := plantdoc.NewEngine(plantdoc.EngineConfigFrom(cfg, logger))
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputLoadResult(engine.Reload(cmd.Context()))
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dataset currently served",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputStatus(engine.Status())
		},
	}
}

func listCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List diseases, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			f := ff.filter("")
			return newFormatter().OutputDiseaseList(engine.Search(f), engine.FilterLabels(f))
		},
	}
	ff.bind(cmd)
	return cmd
}

func searchCmd() *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search diseases by name, crop, pathogen, symptom or pesticide",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()

			term := strings.Join(args, " ")
			if err := engine.RecordSearch(userID, term); err != nil {
				logger.Warn("failed to record search", "error", err)
			}
			f := ff.filter(term)
			return newFormatter().OutputDiseaseList(engine.Search(f), engine.FilterLabels(f))
		},
	}
	ff.bind(cmd)
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <disease-id>",
		Short: "Show a disease in detail",
		Args:  cobra.ExactArgs(1),
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

			detail, err := engine.Detail(userID, id)
			if err != nil {
				return err
			}
			return newFormatter().OutputDiseaseDetail(detail)
		},
	}
}

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <disease-id>",
		Short: "Show the knowledge graph of a disease",
		Args:  cobra.ExactArgs(1),
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

			g, err := engine.Graph(id)
			if err != nil {
				return err
			}
			return newFormatter().OutputGraph(g)
		},
	}
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <term>",
		Short: "Suggest search terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputSuggestions(engine.Suggest(args[0]))
		},
	}
}

func popularCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "popular",
		Short: "List popular search terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputStrings("热门搜索", engine.PopularSearches())
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dataset statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputStats(engine.Stats())
		},
	}
}

func galleryCmd() *cobra.Command {
	var f plantdoc.GalleryFilter
	var page int
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse gallery images",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			return newFormatter().OutputGalleryPage(engine.GalleryPage(f, page))
		},
	}
	cmd.PersistentFlags().StringVar(&f.Crop, "crop", "", "crop")
	cmd.PersistentFlags().StringVar(&f.Disease, "disease", "", "disease name")
	cmd.PersistentFlags().StringVar(&f.Type, "type", "", "image type (健康 for healthy images)")
	cmd.PersistentFlags().StringVarP(&f.Search, "search", "s", "", "free-text filter")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <image-id>",
		Short: "Open one image with its thumbnail strip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			view, err := engine.GalleryImage(f, args[0])
			if err != nil {
				return err
			}
			return newFormatter().OutputImageView(view)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "select <image-id>...",
		Short: "Show only the selected images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer engine.Close()
			images, err := engine.GallerySelection(f, args)
			if err != nil {
				return err
			}
			return newFormatter().OutputGalleryPage(plantdoc.GalleryPage{
				Filter:     f,
				Images:     images,
				Page:       1,
				TotalPages: 1,
				Total:      len(images),
				PageSize:   len(images),
				Pages:      []int{1},
			})
		},
	})
	return cmd
}
