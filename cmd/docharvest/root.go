package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for docharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docharvest",
		Short: "Collect PDF documents linked from seed pages into a ledger",
		Long: `docharvest visits a list of seed pages, finds the PDF documents they link to,
downloads the ones it does not hold yet, and records every valid download
in a JSON ledger.

The ledger is the hand-off to the stage that turns documents into generated
artifacts: it lists which documents exist locally and which of them still
have to be processed. Running a crawl twice against unchanged pages downloads
nothing the second time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().Bool("log-json", false, "Write log lines as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewLedgerCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
