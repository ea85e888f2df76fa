package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docharvest/internal/config"
	"github.com/nao1215/docharvest/internal/database"
	"github.com/nao1215/docharvest/internal/harvest"
	"github.com/nao1215/docharvest/internal/ledger"
	"github.com/nao1215/docharvest/internal/model"
	"github.com/nao1215/docharvest/internal/validator"
)

// NewLedgerCmd creates the ledger command and its subcommands.
func NewLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the document ledger",
		Long: `Ledger shows what the crawler has recorded. None of its subcommands change
the ledger or the downloaded files.

Examples:
  # Table of every record
  docharvest ledger list

  # Documents the downstream stage has not processed yet, as JSON
  docharvest ledger pending

  # One record, with its download history
  docharvest ledger show --history https://www.city.example.jp/koubo/a.pdf

  # Which documents the next crawl will download again
  docharvest ledger verify`,
	}

	cmd.PersistentFlags().StringP("ledger", "l", "",
		"Ledger file (default: "+filepath.Join(config.XDGDataDir(), config.DefaultLedgerFile)+")")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")

	cmd.AddCommand(newLedgerListCmd())
	cmd.AddCommand(newLedgerPendingCmd())
	cmd.AddCommand(newLedgerShowCmd())
	cmd.AddCommand(newLedgerVerifyCmd())

	return cmd
}

// openLedger resolves the configuration and loads the ledger it names.
func openLedger(cmd *cobra.Command) (*config.Config, *ledger.Ledger, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	return cfg, ledger.Load(cfg.LedgerPath, ledger.WithLogger(logger)), logger, nil
}

func newLedgerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := cmd.Flags().GetBool("pending")
			if err != nil {
				return err
			}
			_, l, _, err := openLedger(cmd)
			if err != nil {
				return err
			}

			records := l.Records()
			if pending {
				records = l.Pending()
			}
			return writeRecordTable(cmd.OutOrStdout(), records, l.Len())
		},
	}
	cmd.Flags().BoolP("pending", "p", false, "Only records not yet processed downstream")
	return cmd
}

// writeRecordTable prints records as a table.
func writeRecordTable(out io.Writer, records []model.Record, total int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No records.")
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.CanonicalURL,
			rec.DisplayText,
			orDash(filepath.Base(rec.LocalPath), rec.HasArtifact()),
			yesNo(rec.Processed),
			orDash(rec.GeneratedArtifactPath, rec.GeneratedArtifactPath != ""),
		})
	}

	return renderTable(out, tableSpec{
		headers:  []string{"URL", "TITLE", "FILE", "PROCESSED", "ARTIFACT"},
		rows:     rows,
		caption:  fmt.Sprintf("%d of %d records", len(records), total),
		maxWidth: []int{60, 40, 0, 0, 40},
	})
}

func newLedgerPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Print the downstream work list as JSON",
		Long: `Pending prints the records that have a downloaded document but have not been
processed by the downstream stage yet, as a JSON array sorted by URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, l, _, err := openLedger(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), l.Pending())
		},
	}
}

// historyEntry is one journaled outcome as shown by ledger show.
type historyEntry struct {
	At        time.Time `json:"at"`
	RunSeed   string    `json:"seed"`
	Outcome   string    `json:"outcome"`
	LocalPath string    `json:"local_path,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// recordWithHistory is the output of ledger show --history.
type recordWithHistory struct {
	Record  model.Record   `json:"record"`
	History []historyEntry `json:"history"`
}

func newLedgerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <url>",
		Short: "Print one ledger record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withHistory, err := cmd.Flags().GetBool("history")
			if err != nil {
				return err
			}
			cfg, l, _, err := openLedger(cmd)
			if err != nil {
				return err
			}

			rec, ok := lookupRecord(l, args[0])
			if !ok {
				return fmt.Errorf("%w: %s", errNotInLedger, args[0])
			}
			if !withHistory {
				return writeJSON(cmd.OutOrStdout(), rec)
			}

			history, err := urlHistory(cmd, cfg.HistoryDir, rec.CanonicalURL)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), recordWithHistory{Record: rec, History: history})
		},
	}
	cmd.Flags().Bool("history", false, "Include every recorded crawl outcome for the URL")
	return cmd
}

// lookupRecord finds the record for raw, trying it verbatim and then in
// canonical form so a pasted URL with a #fragment still matches.
func lookupRecord(l *ledger.Ledger, raw string) (model.Record, bool) {
	if rec, ok := l.Get(raw); ok {
		return rec, true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return model.Record{}, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return l.Get(u.String())
}

// urlHistory reads a URL's outcomes from the history database.
// A missing database yields an empty history.
func urlHistory(cmd *cobra.Command, dir, rawURL string) ([]historyEntry, error) {
	history := []historyEntry{}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	journal, err := database.Open(dir, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return history, nil
		}
		return nil, err
	}
	defer journal.Close()

	entries, err := journal.URLHistory(cmd.Context(), rawURL)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		history = append(history, historyEntry{
			At:        e.At,
			RunSeed:   e.Seed,
			Outcome:   e.Outcome.String(),
			LocalPath: e.LocalPath,
			Error:     e.Error,
		})
	}
	return history, nil
}

func newLedgerVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check every recorded file and report what the next crawl re-downloads",
		Long: `Verify runs the document check over every file the ledger points at.
Records whose file is missing or invalid are downloaded again by the next
crawl that discovers their URL. Nothing is changed or deleted.`,
		Args: cobra.NoArgs,
		RunE: runLedgerVerify,
	}
	cmd.Flags().String("validator", config.ValidatorMagic,
		"Document check: magic, structural, or command")
	cmd.Flags().Int("concurrency", 0,
		"Files checked at once (default: number of CPUs)")
	cmd.Flags().Bool("invalid-only", false,
		"Only list records that will be downloaded again")
	return cmd
}

// runLedgerVerify executes ledger verify.
func runLedgerVerify(cmd *cobra.Command, _ []string) error {
	cfg, l, logger, err := openLedger(cmd)
	if err != nil {
		return err
	}
	if err := changedString(cmd, "validator", &cfg.Validator); err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	invalidOnly, err := cmd.Flags().GetBool("invalid-only")
	if err != nil {
		return err
	}

	val, err := validator.New(cfg.Validator, cfg.ValidatorCommand)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verifier := harvest.NewVerifier(val,
		harvest.WithConcurrency(concurrency),
		harvest.WithVerifierLogger(logger),
	)
	checks, err := verifier.Verify(cmd.Context(), l.Records())
	if err != nil {
		return err
	}

	refetch := 0
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		status := "ok"
		if c.WillRefetch() {
			refetch++
			status = "re-download"
			if !c.Record.HasArtifact() {
				status = "no file"
			}
		} else if invalidOnly {
			continue
		}
		rows = append(rows, []string{
			c.Record.CanonicalURL,
			orDash(c.Record.LocalPath, c.Record.HasArtifact()),
			status,
		})
	}

	out := cmd.OutOrStdout()
	if len(rows) > 0 {
		if err := renderTable(out, tableSpec{
			headers:  []string{"URL", "FILE", "STATUS"},
			rows:     rows,
			maxWidth: []int{70, 50, 0},
		}); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(out, "%d of %d records will be downloaded again (validator: %s)\n",
		refetch, len(checks), val.Name())
	return err
}

// writeJSON prints v as indented JSON. HTML escaping is off so URLs keep
// a literal '&'.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string, ok bool) string {
	if !ok {
		return "-"
	}
	return s
}
