package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/crawler"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/fetch"
	applog "github.com/nao1215/seoaudit/internal/log"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/progress"
	"github.com/nao1215/seoaudit/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url>",
		Short: "Crawl a website and write its audit report",
		Long: `Crawl audits every page reachable from the start URL inside the same
registrable domain (example.com covers www.example.com and blog.example.com).

The crawl begins with the start URL, /robots.txt and /sitemap.xml. Links to
other domains are listed as skipped and never fetched. Every fetched URL
yields one row; failures and robots.txt disallowances are rows too.

The report is always written, also when the crawl is interrupted (Ctrl-C)
or the start URL is invalid. A run without any row writes a single
"Empty: run was not completed" row.

Examples:
  # Crawl a site and write out/results.csv
  seoaudit crawl https://example.com/

  # Write a Markdown report with 16 concurrent fetches
  seoaudit crawl -f markdown -o report.md -n 16 https://example.com/

  # Be polite: one request per second per host, stop after 500 pages
  seoaudit crawl --rate 1 --max-pages 500 https://example.com/

  # Use a custom configuration file for cookies and patterns
  seoaudit crawl -c staging.yaml https://staging.example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputPath,
		"Result file path (directories are created if needed)")
	cmd.Flags().StringP("format", "f", config.DefaultOutputFormat,
		"Result format: csv, json, markdown or xlsx")
	cmd.Flags().StringP("progress", "p", config.DefaultProgressPath,
		"Progress snapshot file path (empty disables it)")

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum number of fetches in flight")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each fetch")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Retries for transient fetch failures")
	cmd.Flags().IntP("max-pages", "m", config.DefaultMaxPages,
		"Maximum number of pages to admit (0 means no limit)")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum delay between requests to the same host")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second per host (0 means unlimited)")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header and robots.txt agent name")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Bool("ignore-robots", false,
		"Fetch URLs even when robots.txt disallows them")

	// Duplicate detection flags
	cmd.Flags().Bool("no-empty-duplicates", false,
		"Do not flag pages with an empty title or h1 as duplicates")
	cmd.Flags().Bool("case-insensitive", false,
		"Compare titles and h1s ignoring case")

	// Misc flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoaudit in current or home directory)")
	cmd.Flags().Bool("json-log", false,
		"Write logs as JSON lines")
	cmd.Flags().Bool("no-history", false,
		"Do not save the audit to the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Loading the site file and validation are left to runCrawl so that a
// missing config file or an invalid start URL still produces the result
// artifact.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if len(args) > 0 {
		cfg.StartURL = args[0]
	}

	if cfg.OutputPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.OutputFormat, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.ProgressPath, err = flags.GetString("progress"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}

	ignoreRobots, err := flags.GetBool("ignore-robots")
	if err != nil {
		return nil, err
	}
	cfg.RespectRobots = !ignoreRobots

	noEmpty, err := flags.GetBool("no-empty-duplicates")
	if err != nil {
		return nil, err
	}
	cfg.FlagEmptyDuplicates = !noEmpty

	if cfg.CaseInsensitiveDuplicates, err = flags.GetBool("case-insensitive"); err != nil {
		return nil, err
	}
	if cfg.JSONLog, err = flags.GetBool("json-log"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	cfg.DBDir = config.XDGDataDir()

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadSiteConfigs loads the site configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return file, nil
}

// setupLogger creates a structured logger that masks secrets.
func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.JSONLog {
		return applog.NewSecureJSONLogger(os.Stderr, cfg.Verbose)
	}
	return applog.NewSecureLogger(os.Stderr, cfg.Verbose)
}

// runCrawl executes one crawl session and writes its artifacts.
// The result artifact is written on every path, including invalid input
// and cancellation.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (err error) {
	format := cfg.OutputFormat
	if !config.IsKnownFormat(format) {
		format = config.DefaultOutputFormat
	}
	sink := report.NewSink(cfg.OutputPath, format, cfg.StartURL, report.WithSinkLogger(logger))
	defer func() {
		if ferr := sink.Finalize(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to write report: %w", ferr)
		}
	}()

	if cfg.SiteConfigs == nil {
		if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	startURL, err := config.ParseStartURL(cfg.StartURL)
	if err != nil {
		return err
	}
	host := startURL.Hostname()
	site := cfg.SiteConfigs.GetSiteConfig(host)
	sink.SetDomain(crawler.RegistrableDomain(host))

	tracker, err := progress.NewTracker(cfg.ProgressPath, progress.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create progress file: %w", err)
	}

	engine := crawler.NewEngine(
		fetch.NewFromConfig(cfg, logger),
		sink,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithProgress(tracker),
		crawler.WithDuplicateDetector(crawler.NewDuplicateDetector(
			crawler.WithFlagEmpty(cfg.FlagEmptyDuplicates),
			crawler.WithCaseInsensitive(cfg.CaseInsensitiveDuplicates),
		)),
		crawler.WithFrontierOptions(
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
			crawler.WithMaxPages(cfg.EffectiveMaxPages(host)),
		),
		crawler.WithLogger(logger),
	)

	fmt.Fprintf(out, "Crawling %s...\n", cfg.StartURL)
	startTime := time.Now()

	stats, runErr := engine.Run(ctx, cfg.StartURL)

	status := model.ProgressFinished
	if runErr != nil {
		status = model.ProgressFailed
	} else {
		sink.MarkCompleted()
	}
	if err := tracker.Finish(status); err != nil {
		logger.Error("failed to write final progress", "path", cfg.ProgressPath, "error", err)
	}

	if err := sink.Finalize(); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to write report: %w", err))
	}

	fmt.Fprintf(out, "Crawl %s in %s (%d fetches), report written to %s\n\n",
		completionWord(runErr), time.Since(startTime).Round(time.Millisecond), stats.Dispatched, cfg.OutputPath)

	auditReport := sink.Report()
	if _, err := report.NewSummaryWriter(out, report.WithVerbose(cfg.Verbose)).Write(auditReport); err != nil {
		logger.Error("failed to print summary", "error", err)
	}

	if cfg.SaveToDB {
		if err := saveAudit(ctx, cfg.DBDir, auditReport, logger); err != nil {
			logger.Error("failed to save audit", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("crawl interrupted: %w", runErr)
	}
	return nil
}

func completionWord(runErr error) string {
	if runErr != nil {
		return "interrupted"
	}
	return "completed"
}

// saveAudit stores the finalized report in the history database.
func saveAudit(ctx context.Context, dbDir string, auditReport *model.AuditReport, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// The session may already be canceled; saving must still happen.
	id, err := db.SaveAudit(context.WithoutCancel(ctx), auditReport)
	if err != nil {
		return err
	}

	logger.Info("audit saved to database", "id", id, "domain", auditReport.Domain)
	return nil
}
