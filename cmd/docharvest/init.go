package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/docharvest/internal/config"
)

//go:embed templates/docharvest.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new docharvest configuration file",
		Long: `Initialize creates a new ` + config.DefaultConfigFile + ` configuration file in the current directory.

The generated file includes:
- The seed list, ledger, and download locations
- Timeouts, crawl delay, and the document validator
- Commented examples for per-site cookies, headers, and inclusion rules

Examples:
  # Create ` + config.DefaultConfigFile + ` in current directory
  docharvest init

  # Create config file at a specific path
  docharvest init -o ~/.config/docharvest/config.yaml

  # Force overwrite existing file
  docharvest init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/docharvest.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Site entries may carry session cookies.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The seed list and where the ledger and downloads live")
	fmt.Fprintln(out, "  - Cookies and headers for sites that need them")
	fmt.Fprintln(out, "  - Which document URLs to keep per site (require)")

	return nil
}
