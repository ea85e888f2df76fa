package report

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/docharvest/internal/harvest"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the run result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *harvest.Result) (int, error)
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *harvest.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// fileSize returns the human-readable size of the file at path, or "-".
func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "-"
	}
	return humanize.IBytes(uint64(info.Size())) //nolint:gosec // sizes are never negative
}

// status returns the one-word state of a run.
func status(result *harvest.Result) string {
	switch {
	case result.Cancelled:
		return "Cancelled"
	case len(result.Failures) > 0:
		return "Completed with failures"
	default:
		return "Complete"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
