package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/docharvest/internal/harvest"
)

// JSONWriter outputs the run result as JSON.
// The "acquired" array is what the downstream generation stage consumes.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version, when set, wraps the result with the producing version.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion wraps the output as {"version": v, "result": ...}.
func WithVersion(v string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = v
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a result with the version that produced it.
type JSONReport struct {
	Version string          `json:"version"`
	Result  *harvest.Result `json:"result"`
}

// Write outputs the result in JSON format.
func (w *JSONWriter) Write(result *harvest.Result) (int, error) {
	if w.version != "" {
		return w.writeJSON(&JSONReport{Version: w.version, Result: result})
	}
	return w.writeJSON(result)
}

// writeJSON marshals v and writes it with a trailing newline.
// HTML escaping is off so URLs keep a literal '&'.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
