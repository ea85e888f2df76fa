package validator

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommand identifies a file's MIME type with file(1).
var DefaultCommand = []string{"file", "--brief", "--mime-type"}

// DefaultCommandTimeout bounds one run of the identification tool.
const DefaultCommandTimeout = 10 * time.Second

// pdfMIMEType is the output that marks a file as a PDF.
const pdfMIMEType = "application/pdf"

// Command delegates identification to an external tool.
// The document path is appended as the last argument and the trimmed
// standard output must equal "application/pdf".
type Command struct {
	argv    []string
	timeout time.Duration
}

// NewCommand creates a Command validator. With no arguments DefaultCommand is used.
func NewCommand(argv ...string) *Command {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	return &Command{
		argv:    append([]string(nil), argv...),
		timeout: DefaultCommandTimeout,
	}
}

// Name returns "command".
func (c *Command) Name() string { return StrategyCommand }

// IsValid runs the tool against path.
// A missing binary, a non-zero exit or a timeout all mean invalid.
func (c *Command) IsValid(path string) bool {
	if !regularFile(path) {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	args := append(append([]string(nil), c.argv[1:]...), path)
	out, err := exec.CommandContext(ctx, c.argv[0], args...).Output() //nolint:gosec // Tool is configured by the user
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == pdfMIMEType
}
