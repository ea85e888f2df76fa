// Package seed supplies the ordered list of seed page URLs a crawl starts from.
//
// Seeds come from a newline-delimited file and from URLs given directly on
// the command line. Blank lines and lines starting with '#' are ignored,
// surrounding whitespace is trimmed, and lines that are not absolute
// http(s) URLs are logged and skipped.
package seed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// ErrNoSeeds is returned when no usable seed URL remains after parsing.
var ErrNoSeeds = errors.New("no usable seed URLs")

// maxLineSize bounds a single seed line.
const maxLineSize = bufio.MaxScanTokenSize

// Source supplies seed URLs from a file and an explicit list.
type Source struct {
	path   string
	extra  []string
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithFile sets the seed list file. An empty path means no file.
func WithFile(path string) Option {
	return func(s *Source) {
		s.path = path
	}
}

// WithURLs appends seed URLs that are crawled after the file entries.
func WithURLs(urls ...string) Option {
	return func(s *Source) {
		s.extra = append(s.extra, urls...)
	}
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a Source.
func New(opts ...Option) *Source {
	s := &Source{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Seeds returns the seed URLs in order: file entries first, then the
// explicit list. A URL listed twice is returned once, at its first position.
// An unreadable file is an error; an empty result is ErrNoSeeds.
func (s *Source) Seeds() ([]string, error) {
	var raw []string

	if s.path != "" {
		f, err := os.Open(s.path) //nolint:gosec // User-provided seed list path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()

		lines, err := Parse(f, s.logger.With("file", s.path))
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file %s: %w", s.path, err)
		}
		raw = lines
	}

	for _, u := range s.extra {
		u = strings.TrimSpace(u)
		if !IsSeedURL(u) {
			s.logger.Warn("skipping invalid seed URL", "seed", u)
			continue
		}
		raw = append(raw, u)
	}

	seen := make(map[string]struct{}, len(raw))
	seeds := make([]string, 0, len(raw))
	for _, u := range raw {
		if _, dup := seen[u]; dup {
			s.logger.Debug("duplicate seed ignored", "seed", u)
			continue
		}
		seen[u] = struct{}{}
		seeds = append(seeds, u)
	}

	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	return seeds, nil
}

// Parse reads seed URLs from r, one per line.
// Invalid lines are logged at WARN with their line number and skipped.
func Parse(r io.Reader, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var seeds []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !IsSeedURL(line) {
			logger.Warn("skipping invalid seed line", "line", lineNo, "value", line)
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return seeds, nil
}

// IsSeedURL reports whether raw is an absolute http or https URL with a host.
func IsSeedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
