package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nao1215/docharvest/internal/config"
	"github.com/nao1215/docharvest/internal/database"
)

// defaultHistoryLimit is how many runs history lists without --limit.
const defaultHistoryLimit = 20

// shortRunIDLength is how much of a run ID the run table shows.
// Any unique prefix is accepted as an argument.
const shortRunIDLength = 8

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past crawl runs",
		Long: `History lists recent crawl runs from the history database, newest first.

Given a run ID (or a unique prefix of one), it prints that run's report again:
the documents it acquired and the links and seeds that failed.

Examples:
  # The last 20 runs
  docharvest history

  # Every run
  docharvest history --limit 0

  # The report of one run, as Markdown
  docharvest history 3f2a9c1e --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of runs to list (0 lists all)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output the run report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the run report as Markdown (mutually exclusive with --json)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	journal, err := database.Open(cfg.HistoryDir, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "No runs recorded yet.")
			fmt.Fprintln(out, "\nUse 'docharvest crawl' to run a crawl.")
			return nil
		}
		return err
	}
	defer journal.Close()

	if len(args) == 1 {
		return showRun(cmd, journal, cfg, args[0])
	}

	runs, err := journal.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return writeRunTable(out, runs, time.Now())
}

// showRun prints the stored report of the run matching idPrefix.
func showRun(cmd *cobra.Command, journal *database.Journal, cfg *config.Config, idPrefix string) error {
	runs, err := journal.ListRuns(cmd.Context(), 0)
	if err != nil {
		return err
	}

	var matches []string
	for _, r := range runs {
		if strings.HasPrefix(r.ID, idPrefix) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: %s", database.ErrRunNotFound, idPrefix)
	case 1:
	default:
		return fmt.Errorf("run ID prefix %q is ambiguous (%d runs match)", idPrefix, len(matches))
	}

	result, err := journal.GetRun(cmd.Context(), matches[0])
	if err != nil {
		return err
	}
	return outputReport(cmd.OutOrStdout(), cfg, result)
}

// writeRunTable prints one row per run.
func writeRunTable(out io.Writer, runs []database.RunSummary, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(out, "No runs recorded yet.")
		return err
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		id := r.ID
		if len(id) > shortRunIDLength {
			id = id[:shortRunIDLength]
		}

		duration := "running"
		if !r.Finished.IsZero() {
			duration = r.Duration().Round(time.Second).String()
			if r.Cancelled {
				duration += " (interrupted)"
			}
		}

		rows = append(rows, []string{
			id,
			r.Started.Local().Format("2006-01-02 15:04"),
			humanize.RelTime(r.Started, now, "ago", "from now"),
			duration,
			strconv.Itoa(r.Seeds),
			humanize.Comma(int64(r.Discovered)),
			humanize.Comma(int64(r.Skipped)),
			humanize.Comma(int64(r.Acquired)),
			humanize.Comma(int64(r.Failures)),
		})
	}

	return renderTable(out, tableSpec{
		headers: []string{"RUN", "STARTED", "", "DURATION", "SEEDS", "FOUND", "SKIPPED", "NEW", "FAILED"},
		rows:    rows,
		aligns: []columnAlignment{
			alignLeft, alignLeft, alignLeft, alignLeft,
			alignRight, alignRight, alignRight, alignRight, alignRight,
		},
		caption: "docharvest history <run> shows a run's report",
	})
}
