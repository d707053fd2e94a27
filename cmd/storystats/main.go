package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/storystats/internal/cache"
	"github.com/TobiSchelling/storystats/internal/compose"
	"github.com/TobiSchelling/storystats/internal/config"
	"github.com/TobiSchelling/storystats/internal/database"
	"github.com/TobiSchelling/storystats/internal/export"
	"github.com/TobiSchelling/storystats/internal/fetch"
	"github.com/TobiSchelling/storystats/internal/logger"
	"github.com/TobiSchelling/storystats/internal/pipeline"
	"github.com/TobiSchelling/storystats/internal/server"
	"github.com/TobiSchelling/storystats/internal/stats"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	log        *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "storystats",
	Short:   "Story statistics backend",
	Long:    "storystats stores classified stories and serves the dashboard statistics computed over them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log = logger.New(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fetchCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("storystats", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/storystats/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the timezone, import feeds and the redis cache.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.GetStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Stories:")
		fmt.Printf("  Total: %d\n", s.Stories)
		fmt.Printf("  Awaiting text: %d\n", s.AwaitingText)
		fmt.Println("\nPages:")
		fmt.Printf("  Total: %d\n", s.Pages)
		fmt.Printf("  Active: %d\n", s.ActivePages)
		fmt.Println("\nTaxonomy:")
		fmt.Printf("  Topics: %d\n", s.Topics)
		fmt.Printf("  Sub-topics: %d\n", s.SubTopics)
		fmt.Printf("  Categories: %d\n", s.Categories)
		fmt.Printf("\nDay analyses: %d\n", s.DayAnalyses)
		return nil
	},
}

// --- serve command ---

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c := openCache(ctx)
		defer c.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv := server.New(db, log, server.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Cache:          c,
			Engine:         newEngine(db),
		})
		return server.Serve(ctx, srv, fmt.Sprintf("%s:%d", serveHost, port))
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Interface to listen on")
}

// --- stats and export commands ---

var (
	filterSearch string
	filterTopic  int64
	filterPage   int64
	filterDays   int
	digest       bool
	exportPath   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the statistics payload as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		crit, p, err := computeStats(cmd, db)
		if err != nil {
			return err
		}

		if digest {
			fmt.Println(compose.Digest(p, crit, time.Now()))
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the statistics payload to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		_, p, err := computeStats(cmd, db)
		if err != nil {
			return err
		}
		if err := export.WriteFile(p, exportPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d stories)\n", exportPath, p.TotalCount)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, exportCmd} {
		c.Flags().StringVar(&filterSearch, "search", "", "Only stories whose title or text contains this")
		c.Flags().Int64Var(&filterTopic, "topic", 0, "Only stories of pages with this topic id")
		c.Flags().Int64Var(&filterPage, "page", 0, "Only stories of this page id")
		c.Flags().IntVar(&filterDays, "days", 0, "Only stories created in the last N days")
	}
	statsCmd.Flags().BoolVar(&digest, "digest", false, "Print a markdown digest instead of JSON")
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "storystats.xlsx", "Output file")
}

// computeStats builds criteria from the flags the caller actually set.
func computeStats(cmd *cobra.Command, db *database.DB) (stats.Criteria, *stats.Payload, error) {
	q := url.Values{}
	if filterSearch != "" {
		q.Set("search", filterSearch)
	}
	if cmd.Flags().Changed("topic") {
		q.Set("topic_id", strconv.FormatInt(filterTopic, 10))
	}
	if cmd.Flags().Changed("page") {
		q.Set("page_id", strconv.FormatInt(filterPage, 10))
	}
	if cmd.Flags().Changed("days") {
		q.Set("days", strconv.Itoa(filterDays))
	}

	crit, err := stats.ParseCriteria(q)
	if err != nil {
		return stats.Criteria{}, nil, err
	}
	p, err := newEngine(db).Compute(cmd.Context(), crit)
	if err != nil {
		return stats.Criteria{}, nil, fmt.Errorf("computing stats: %w", err)
	}
	return crit, p, nil
}

// --- import and fetch commands ---

var (
	dryRun   bool
	daysBack int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the import pipeline: collect -> fetch -> refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		c := openCache(ctx)
		defer c.Close()

		pipe := pipeline.New(cfg, db, c, log)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(ctx)
		} else {
			result = pipe.Run(ctx, daysBack)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/3: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("import finished with errors")
		}
		if !dryRun {
			fmt.Println("\nImport complete! Run 'storystats serve' to query the statistics.")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	importCmd.Flags().IntVar(&daysBack, "days", 0, "Only import feed items from the last N days")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fill empty story texts from their source url",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		f := fetch.NewTextFetcher(db, cfg.Fetch.Timeout, cfg.Fetch.UserAgent, log)
		result, err := f.FetchMissingText(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Fetched %d texts, %d failed\n", result.Fetched, result.Failed)
		return nil
	},
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "storystats.db")
	return database.Open(dbPath)
}

// openCache connects to redis when configured. An unreachable server
// disables caching instead of failing the command.
func openCache(ctx context.Context) cache.Cache {
	if cfg.Cache.RedisURL == "" {
		return cache.Noop{}
	}
	r, err := cache.Connect(ctx, cfg.Cache.RedisURL, cache.Options{
		TTL: cfg.Cache.TTL,
		Log: log.Component("cache").Entry,
	})
	if err != nil {
		log.WithError(err).Warn("stats cache disabled")
		return cache.Noop{}
	}
	return r
}

func newEngine(db *database.DB) *stats.Engine {
	return stats.NewEngine(db,
		stats.WithLocation(cfg.Location()),
		stats.WithTagLimit(cfg.Stats.TagLimit),
	)
}
