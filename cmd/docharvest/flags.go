package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/docharvest/internal/config"
	applog "github.com/nao1215/docharvest/internal/log"
)

// getBoolFlag retrieves a bool flag from the command or the root's
// persistent flags. A flag that exists on neither reads as false.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// changedString copies a string flag into dst when the user set it.
// Unset flags leave the value from the config file in place.
func changedString(cmd *cobra.Command, name string, dst *string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// loadConfig builds a Config from defaults and the configuration file.
// An explicitly given config path must exist; otherwise a missing file
// just means defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cmd.Flags().Lookup("config") != nil {
		cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
		if err != nil {
			return nil, err
		}
	}

	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if cmd.Flags().Lookup("ledger") != nil {
		if err := changedString(cmd, "ledger", &cfg.LedgerPath); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.Quiet = getBoolFlag(cmd, "quiet")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	if cfg.Verbose && cfg.Quiet {
		return nil, fmt.Errorf("configuration error: %w", config.ErrConflictingVerbosity)
	}

	return cfg, nil
}

// setupLogger creates the logger every command writes its diagnostics to.
// Logs go to w (stderr) so reports and tables on stdout stay clean.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := applog.Level(cfg.Verbose, cfg.Quiet)
	if cfg.LogJSON {
		return applog.NewSecureJSONLogger(w, level)
	}
	return applog.NewSecureLogger(w, level)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// errNotInLedger is returned when a URL has no ledger record.
var errNotInLedger = errors.New("url not found in ledger")
