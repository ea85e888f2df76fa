package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nao1215/docharvest/internal/harvest"
)

// SimpleWriter outputs a human-readable text report.
// Plain ASCII rules keep it readable when piped to a file.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no entries are shown.
	showEmpty bool

	// verbose adds file sizes and local paths.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *harvest.Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeSummary(&sb, result)
	w.writeAcquired(&sb, result)
	w.writeFailures(&sb, result)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the run identity and status.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *harvest.Result) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        DOCHARVEST RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run:       %s\n", result.RunID)
	fmt.Fprintf(sb, "Started:   %s\n", result.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:  %s\n", result.Duration().Round(time.Second))
	fmt.Fprintf(sb, "Status:    %s\n", status(result))
	sb.WriteString("\n")
}

// writeSummary writes the counters.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *harvest.Result) {
	w.section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  SEEDS:      %s\n", humanize.Comma(int64(result.Seeds)))
	fmt.Fprintf(sb, "  DISCOVERED: %s\n", humanize.Comma(int64(result.Discovered)))
	fmt.Fprintf(sb, "  SKIPPED:    %s\n", humanize.Comma(int64(result.Skipped)))
	fmt.Fprintf(sb, "  ACQUIRED:   %s\n", humanize.Comma(int64(len(result.Acquired))))
	fmt.Fprintf(sb, "  FAILED:     %s\n", humanize.Comma(int64(len(result.Failures))))
	sb.WriteString("\n")
}

// writeAcquired lists the documents acquired by the run.
func (w *SimpleWriter) writeAcquired(sb *strings.Builder, result *harvest.Result) {
	if len(result.Acquired) == 0 && !w.showEmpty {
		return
	}
	w.section(sb, "NEW DOCUMENTS")

	if len(result.Acquired) == 0 {
		sb.WriteString("  No new documents\n\n")
		return
	}
	for _, rec := range result.Acquired {
		fmt.Fprintf(sb, "  [+] %s\n", rec.DisplayText)
		fmt.Fprintf(sb, "      %s\n", rec.CanonicalURL)
		if w.verbose {
			fmt.Fprintf(sb, "      %s (%s)\n", rec.LocalPath, fileSize(rec.LocalPath))
		}
	}
	sb.WriteString("\n")
}

// writeFailures lists abandoned seeds and links.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, result *harvest.Result) {
	if len(result.Failures) == 0 && !w.showEmpty {
		return
	}
	w.section(sb, "FAILURES")

	if len(result.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}
	for _, f := range result.Failures {
		target := f.URL
		if target == "" {
			target = f.Seed
		}
		fmt.Fprintf(sb, "  [%s] %s\n", f.Stage, target)
		fmt.Fprintf(sb, "      %s\n", f.Error)
	}
	sb.WriteString("\nFailed documents are retried on the next run.\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
