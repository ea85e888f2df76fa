package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docharvest/internal/config"
	"github.com/nao1215/docharvest/internal/crawler"
	"github.com/nao1215/docharvest/internal/database"
	"github.com/nao1215/docharvest/internal/downloader"
	"github.com/nao1215/docharvest/internal/harvest"
	"github.com/nao1215/docharvest/internal/httpclient"
	"github.com/nao1215/docharvest/internal/ledger"
	"github.com/nao1215/docharvest/internal/report"
	"github.com/nao1215/docharvest/internal/seed"
	"github.com/nao1215/docharvest/internal/validator"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Discover and download new documents from the seed pages",
		Long: `Crawl visits every seed page in order, collects the links to documents,
and downloads each document the ledger does not hold yet.

A link is downloaded again when its ledger record points at a file that is
missing or no longer a valid document. Downloads that fail or are not real
documents are discarded and retried on the next run. The ledger is saved
once, at the end of the run, even when the run is interrupted.

Examples:
  # Crawl the seeds listed in a file
  docharvest crawl --seeds seeds.txt

  # Crawl seed pages given on the command line
  docharvest crawl https://www.city.example.jp/koubo/index.html

  # Keep the ledger and downloads next to the project
  docharvest crawl --seeds seeds.txt --ledger data/processed_files.json --downloads data/downloads

  # Be polite: one request per two seconds, honor robots.txt
  docharvest crawl --seeds seeds.txt --delay 2s --robots

  # Write the list of new documents as JSON for the next stage
  docharvest crawl --seeds seeds.txt --json -o out/new.json`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Input and state
	cmd.Flags().StringP("seeds", "s", "",
		"Seed list file, one URL per line")
	cmd.Flags().StringP("ledger", "l", "",
		"Ledger file (default: "+filepath.Join(config.XDGDataDir(), config.DefaultLedgerFile)+")")
	cmd.Flags().StringP("downloads", "d", "",
		"Download directory (default: "+filepath.Join(config.XDGDataDir(), config.DefaultDownloadDir)+")")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")

	// Crawl behavior
	cmd.Flags().String("extension", config.DefaultExtension,
		"Document extension to look for")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each document download")
	cmd.Flags().Duration("page-timeout", config.DefaultPageTimeout,
		"Timeout for each seed page")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Minimum gap between two requests")
	cmd.Flags().Int64("max-size", config.DefaultMaxDocumentSize,
		"Largest document accepted, in bytes")
	cmd.Flags().String("validator", config.ValidatorMagic,
		"Document check: magic, structural, or command")
	cmd.Flags().Bool("robots", false,
		"Skip documents disallowed by robots.txt")
	cmd.Flags().Bool("lock", false,
		"Refuse to run while another run holds the ledger")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, finishing current link and saving the ledger")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildCrawlConfig creates a Config from the config file and the flags.
// Flags only override the file when they were given explicitly.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	for name, dst := range map[string]*string{
		"seeds":     &cfg.SeedsFile,
		"downloads": &cfg.DownloadDir,
		"extension": &cfg.Extension,
		"validator": &cfg.Validator,
		"proxy":     &cfg.Proxy,
	} {
		if err := changedString(cmd, name, dst); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	for name, dst := range map[string]*time.Duration{
		"timeout":      &cfg.Timeout,
		"page-timeout": &cfg.PageTimeout,
		"delay":        &cfg.CrawlDelay,
	} {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetDuration(name); err != nil {
			return nil, err
		}
	}

	if flags.Changed("max-size") {
		if cfg.MaxDocumentSize, err = flags.GetInt64("max-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("robots") {
		if cfg.RespectRobots, err = flags.GetBool("robots"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("lock") {
		if cfg.Lock, err = flags.GetBool("lock"); err != nil {
			return nil, err
		}
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}

	cfg.JSONReport, err = flags.GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = flags.GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = flags.GetString("output")
	if err != nil {
		return nil, err
	}

	// Seed URLs from the command line are crawled after the seed file.
	cfg.Seeds = args

	return cfg, nil
}

// runCrawl wires the components for one run and writes the report.
func runCrawl(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	seeds, err := seed.New(
		seed.WithFile(cfg.SeedsFile),
		seed.WithURLs(cfg.Seeds...),
		seed.WithLogger(logger),
	).Seeds()
	if err != nil {
		return err
	}

	val, err := validator.New(cfg.Validator, cfg.ValidatorCommand)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Pages and documents share one jar so a session cookie set by a seed
	// page is sent with its document downloads.
	jar := httpclient.NewJar()
	pageClient, err := httpclient.New(
		httpclient.WithTimeout(cfg.PageTimeout),
		httpclient.WithProxy(cfg.Proxy),
		httpclient.WithJar(jar),
	)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	docClient, err := httpclient.New(
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithProxy(cfg.Proxy),
		httpclient.WithJar(jar),
	)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	profile := httpclient.NewSiteProfile(httpclient.DefaultIdentity(), cfg.SiteConfigs)

	// One limiter spaces every request of the run, robots.txt included.
	limiter := harvest.NewLimiter(cfg.CrawlDelay)

	discOpts := []crawler.DiscovererOption{
		crawler.WithProfile(profile),
		crawler.WithExtension(cfg.Extension),
		crawler.WithPolicy(crawler.PolicyFromConfig(cfg.SiteConfigs)),
		crawler.WithMaxPageSize(config.DefaultMaxPageSize),
		crawler.WithLogger(logger),
	}
	if cfg.RespectRobots {
		discOpts = append(discOpts, crawler.WithRobots(crawler.NewRobots(pageClient, profile, logger, crawler.WithRobotsLimiter(limiter))))
	}
	disc := crawler.NewDiscoverer(pageClient, discOpts...)

	dl := downloader.New(docClient, cfg.DownloadDir,
		downloader.WithProfile(profile),
		downloader.WithValidator(val),
		downloader.WithMaxSize(cfg.MaxDocumentSize),
		downloader.WithLogger(logger),
	)

	l := ledger.Load(cfg.LedgerPath, ledger.WithLogger(logger))

	opts := []harvest.Option{
		harvest.WithValidator(val),
		harvest.WithLimiter(limiter),
		harvest.WithLock(cfg.Lock),
		harvest.WithLogger(logger),
	}
	if cfg.SaveHistory {
		journal, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("history database unavailable, run will not be recorded", "error", err)
		} else {
			defer journal.Close()
			opts = append(opts, harvest.WithRecorder(journal))
		}
	}

	result, runErr := harvest.New(l, disc, dl, opts...).Run(ctx, seeds)
	if result != nil {
		if err := outputReport(out, cfg, result); err != nil {
			if runErr == nil {
				return err
			}
			logger.Error("failed to write report", "error", err)
		}
	}

	// An interrupted run has already saved what it did; that is not a failure.
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		logger.Warn("crawl interrupted before all seeds were visited")
		return nil
	}
	return runErr
}

// outputReport writes the run report in the selected format.
func outputReport(stdout io.Writer, cfg *config.Config, result *harvest.Result) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := w.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
