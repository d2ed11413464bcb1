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

	"github.com/nao1215/sitescribe/internal/config"
	"github.com/nao1215/sitescribe/internal/database"
	"github.com/nao1215/sitescribe/internal/metrics"
	"github.com/nao1215/sitescribe/internal/model"
	"github.com/nao1215/sitescribe/internal/report"
	"github.com/nao1215/sitescribe/internal/scraper"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Crawl websites and extract the content relevant to an instruction",
		Long: `Scrape crawls each seed URL breadth-first, following links on the same host
up to --depth hops, and keeps the pages that match the keywords derived from
--instructions. The kept pages are written as documents to stdout or --output.

Keywords come from an OpenAI-compatible API when an API key is available
(see --api-key-env) and from the instruction words otherwise. Without
--instructions every page is kept.

Examples:
  # Collect pricing and FAQ pages, two hops deep
  sitescribe scrape -i "Find pricing plans and FAQs" https://example.com/

  # Only fetch the seed page and write Markdown to a file
  sitescribe scrape -d 0 -f markdown -o docs.md https://example.com/pricing

  # Scrape several sites, three at a time, and merge documents per host
  sitescribe scrape -b 3 --merge https://a.example/ https://b.example/ https://c.example/

  # Fail instead of crawling unfiltered when the LLM is unreachable
  sitescribe scrape --keywords llm --keyword-policy required -i "release notes" https://example.com/

Configuration file (.sitescribe) example:
  defaults:
    headers:
      Accept-Language: "en"
  sites:
    docs.example.com:
      cookie: "session_id=abc123"
      depth: 3
      ignorePatterns:
        - "/blog/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Content flags
	cmd.Flags().StringP("instructions", "i", "",
		"What to look for, in plain language (empty keeps every page)")
	cmd.Flags().Bool("passages", false,
		"Keep only the matching paragraphs of each relevant page")
	cmd.Flags().Bool("merge", false,
		"Merge all documents of a host into one document")

	// Crawl flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum number of link hops from each seed (0 fetches only the seed)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum pages fetched per seed (0 = unbounded)")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetches per seed (1 = sequential)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds scraped concurrently")
	cmd.Flags().Duration("session-timeout", 0,
		"Stop each session after this long and keep the partial result (0 = unbounded)")

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultRequestTimeout,
		"Timeout for each request")
	cmd.Flags().Int("attempts", config.DefaultMaxAttempts,
		"Attempts per URL for transient failures")
	cmd.Flags().String("backoff", config.BackoffExponential,
		"Delay policy between attempts: exponential or constant")
	cmd.Flags().Duration("backoff-initial", config.DefaultBackoffInitial,
		"First delay between attempts")
	cmd.Flags().Duration("backoff-max", config.DefaultBackoffMax,
		"Maximum delay between attempts")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read per page")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")

	// Keyword flags
	cmd.Flags().String("keywords", config.KeywordSourceAuto,
		"Keyword source: auto, llm or heuristic")
	cmd.Flags().String("keyword-policy", config.KeywordPolicyFallback,
		"When keywords are unavailable: fallback (crawl unfiltered) or required (fail)")
	cmd.Flags().String("llm-base-url", config.DefaultLLMBaseURL,
		"OpenAI-compatible API root")
	cmd.Flags().String("llm-model", config.DefaultLLMModel,
		"Chat model used to extract keywords")
	cmd.Flags().String("api-key-env", config.DefaultAPIKeyEnv,
		"Environment variable holding the API key")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescribe in current directory or XDG config dir)")

	// Output flags
	cmd.Flags().StringP("format", "f", config.FormatJSON,
		"Output format: json, markdown or text")
	cmd.Flags().StringP("output", "o", "",
		"Write documents to this file (creates directories if needed)")
	cmd.Flags().Bool("save", true,
		"Record sessions in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().String("metrics-addr", "",
		"Expose Prometheus metrics on this address while scraping (e.g., :9090)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogFile = getStringFlag(cmd, "log-file")

	logger, closer, err := setupLogger(cmd, secretsOf(cfg)...)
	if err != nil {
		return err
	}
	defer closer.Close()

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cmd, cfg, logger)
}

// buildConfig creates a Config from cobra command flags and the config file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Instructions, err = cmd.Flags().GetString("instructions")
	if err != nil {
		return nil, err
	}
	cfg.Passages, err = cmd.Flags().GetBool("passages")
	if err != nil {
		return nil, err
	}
	cfg.Merge, err = cmd.Flags().GetBool("merge")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}
	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}
	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}
	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}
	cfg.SessionTimeout, err = cmd.Flags().GetDuration("session-timeout")
	if err != nil {
		return nil, err
	}

	cfg.RequestTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.MaxAttempts, err = cmd.Flags().GetInt("attempts")
	if err != nil {
		return nil, err
	}
	cfg.Backoff, err = cmd.Flags().GetString("backoff")
	if err != nil {
		return nil, err
	}
	cfg.BackoffInitial, err = cmd.Flags().GetDuration("backoff-initial")
	if err != nil {
		return nil, err
	}
	cfg.BackoffMax, err = cmd.Flags().GetDuration("backoff-max")
	if err != nil {
		return nil, err
	}
	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}
	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}
	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.KeywordSource, err = cmd.Flags().GetString("keywords")
	if err != nil {
		return nil, err
	}
	cfg.KeywordPolicy, err = cmd.Flags().GetString("keyword-policy")
	if err != nil {
		return nil, err
	}
	cfg.LLMBaseURL, err = cmd.Flags().GetString("llm-base-url")
	if err != nil {
		return nil, err
	}
	cfg.LLMModel, err = cmd.Flags().GetString("llm-model")
	if err != nil {
		return nil, err
	}
	cfg.APIKeyEnv, err = cmd.Flags().GetString("api-key-env")
	if err != nil {
		return nil, err
	}

	cfg.Format, err = cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB, err = cmd.Flags().GetBool("save")
	if err != nil {
		return nil, err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	cfg.MetricsAddr, err = cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user named a config file it must exist; otherwise a missing
	// file just means no per-site settings.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.Targets = args

	return cfg, nil
}

// secretsOf lists the configured values that must never be logged:
// the API key and every per-site cookie and header value.
func secretsOf(cfg *config.Config) []string {
	secrets := []string{os.Getenv(cfg.APIKeyEnv)}
	if cfg.SiteConfigs == nil {
		return secrets
	}

	sites := []config.SiteConfig{cfg.SiteConfigs.Defaults}
	for _, site := range cfg.SiteConfigs.Sites {
		sites = append(sites, site)
	}
	for _, site := range sites {
		secrets = append(secrets, site.Cookie)
		for _, v := range site.Headers {
			secrets = append(secrets, v)
		}
	}
	return secrets
}

// runScrape executes the sessions and writes their documents.
func runScrape(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"targets", cfg.Targets,
		"depth", cfg.MaxDepth,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	opts := []scraper.Option{scraper.WithLogger(logger)}

	if cfg.SaveToDB {
		store, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		logger.Info("database opened", "path", store.Path())
		opts = append(opts, scraper.WithStore(store))
	}

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		opts = append(opts, scraper.WithMetrics(collector))

		serverCtx, stopServer := context.WithCancel(ctx)
		served := make(chan struct{})
		go func() {
			defer close(served)
			if err := collector.Serve(serverCtx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			stopServer()
			<-served
		}()
	}

	prog := newProgress(cmd.ErrOrStderr(), !cfg.Verbose)
	opts = append(opts, scraper.WithProgress(prog.update))

	client, err := scraper.New(cfg, opts...)
	if err != nil {
		return err
	}

	startTime := time.Now()
	prog.start(len(cfg.Targets))
	sessions, runErr := client.ScrapeAll(ctx, cfg.Targets)
	prog.stop()

	printSummary(cmd.ErrOrStderr(), sessions, time.Since(startTime))

	if err := writeDocuments(cmd, cfg, collectDocuments(sessions)); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("scrape interrupted: %w", runErr)
	}
	if failed := countFailed(sessions); failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", failed, len(sessions))
	}
	return nil
}

// collectDocuments concatenates the documents of all sessions in seed order.
// Failed sessions contribute nothing.
func collectDocuments(sessions []*model.Session) []model.Document {
	docs := make([]model.Document, 0)
	for _, s := range sessions {
		if s == nil || s.Failed() {
			continue
		}
		docs = append(docs, s.Documents...)
	}
	return docs
}

func countFailed(sessions []*model.Session) int {
	n := 0
	for _, s := range sessions {
		if s == nil || s.Failed() {
			n++
		}
	}
	return n
}

// printSummary writes one line per session to w.
func printSummary(w io.Writer, sessions []*model.Session, elapsed time.Duration) {
	for _, s := range sessions {
		if s == nil {
			continue
		}
		switch {
		case s.Failed():
			fmt.Fprintf(w, "✗ %s: %s\n", s.SeedURL, s.ErrorMessage)
		default:
			note := ""
			if s.Truncated {
				note = " (partial: budget reached)"
			}
			fmt.Fprintf(w, "✓ %s: %d documents from %d pages, %d skipped%s [session %s]\n",
				s.SeedURL, len(s.Documents), s.Stats.PagesFetched,
				s.Stats.PagesFailed+s.Stats.PagesSkipped, note, shortID(s.ID))
		}
	}
	fmt.Fprintf(w, "Completed in %s\n", elapsed.Round(time.Millisecond))
}

// writeDocuments writes docs in the configured format.
func writeDocuments(cmd *cobra.Command, cfg *config.Config, docs []model.Document) (err error) {
	out, closeOut, err := openOutput(cfg.OutputFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeOut())
	}()

	w, err := report.New(cfg.Format, out, getVersion())
	if err != nil {
		return err
	}
	if _, err := w.WriteDocuments(docs); err != nil {
		return fmt.Errorf("failed to write documents: %w", err)
	}
	return nil
}

// shortID abbreviates a session ID for display. Any unique prefix is
// accepted by the show command.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
