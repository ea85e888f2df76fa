package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// testConfig is a config file pointing every location into one temp dir.
type testConfig struct {
	path       string
	ledgerPath string
	downloads  string
	historyDir string
}

func writeTestConfig(t *testing.T, extra ...string) testConfig {
	t.Helper()

	dir := t.TempDir()
	tc := testConfig{
		path:       filepath.Join(dir, "docharvest.yaml"),
		ledgerPath: filepath.Join(dir, "data", "processed_files.json"),
		downloads:  filepath.Join(dir, "data", "downloads"),
		historyDir: filepath.Join(dir, "history"),
	}

	lines := []string{
		fmt.Sprintf("ledger: %q", tc.ledgerPath),
		fmt.Sprintf("downloads: %q", tc.downloads),
		fmt.Sprintf("history_dir: %q", tc.historyDir),
		"timeout: 5s",
		"page_timeout: 5s",
	}
	lines = append(lines, extra...)

	if err := os.WriteFile(tc.path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return tc
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(40, 10, "call for proposals")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("failed to render PDF: %v", err)
	}
	return buf.Bytes()
}
