package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docharvest/internal/harvest"
)

// MarkdownWriter outputs the run result as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *harvest.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeSummary(md, result)
	w.writeAcquired(md, result)
	w.writeFailures(md, result)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *harvest.Result) {
	md.H1("docharvest Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + result.RunID + "`"},
			{"Started", result.Started.Format("2006-01-02 15:04:05 MST")},
			{"Finished", result.Finished.Format("2006-01-02 15:04:05 MST")},
			{"Seeds", strconv.Itoa(result.Seeds)},
			{"Status", status(result)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the outcome counts, a chart, and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, result *harvest.Result) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Discovered", strconv.Itoa(result.Discovered)},
			{"Skipped", strconv.Itoa(result.Skipped)},
			{"Acquired", strconv.Itoa(len(result.Acquired))},
			{"Failed", strconv.Itoa(len(result.Failures))},
		},
	})
	md.PlainText("")

	if result.Discovered > 0 {
		w.writePieChart(md, result)
	}

	switch {
	case result.Cancelled:
		md.Warningf("The run was cancelled before every seed was visited.")
	case len(result.Failures) > 0:
		md.Importantf("%d seed(s) or document(s) failed. Documents are retried on the next run.", len(result.Failures))
	case len(result.Acquired) > 0:
		md.Note(strconv.Itoa(len(result.Acquired)) + " new document(s) are ready for processing.")
	default:
		md.Tip("Nothing new. The ledger is up to date.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of link outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *harvest.Result) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Link Outcomes"),
		piechart.WithShowData(true),
	)

	if result.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(result.Skipped))
	}
	if n := len(result.Acquired); n > 0 {
		chart.LabelAndIntValue("Acquired", uint64(n))
	}
	if n := result.Discarded(); n > 0 {
		chart.LabelAndIntValue("Discarded", uint64(n))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAcquired writes the table of new documents.
func (w *MarkdownWriter) writeAcquired(md *markdown.Markdown, result *harvest.Result) {
	md.H2("New Documents")
	md.PlainText("")

	if len(result.Acquired) == 0 {
		md.PlainText("No new documents.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.Acquired))
	for i, rec := range result.Acquired {
		rows[i] = []string{
			truncateString(rec.DisplayText, 60),
			"`" + rec.CanonicalURL + "`",
			fileSize(rec.LocalPath),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "URL", "Size"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the table of failures, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *harvest.Result) {
	if len(result.Failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(result.Failures))
	for i, f := range result.Failures {
		target := f.URL
		if target == "" {
			target = f.Seed
		}
		rows[i] = []string{f.Stage, "`" + target + "`", truncateString(f.Error, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("*%s failure(s) in %s*", humanize.Comma(int64(len(result.Failures))), result.Duration().String())
}
