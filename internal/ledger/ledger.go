package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/docharvest/internal/model"
)

// ErrEmptyURL is returned by Put when the record has no canonical URL.
var ErrEmptyURL = errors.New("record has no canonical URL")

// corruptSuffixLayout is the UTC timestamp layout of corrupt sidecar files.
const corruptSuffixLayout = "20060102T150405Z"

// Ledger is the in-memory view of the ledger file.
// It is safe for concurrent use.
type Ledger struct {
	path    string
	logger  *slog.Logger
	now     func() time.Time
	sidecar string

	mu      sync.RWMutex
	records map[string]model.Record
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used to report load problems.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock sets the time source used to name corrupt sidecar files.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Load reads the ledger at path.
// It never returns an error: every failure is logged at WARN and an empty
// ledger is returned instead.
func Load(path string, opts ...Option) *Ledger {
	l := &Ledger{
		path:    path,
		now:     time.Now,
		records: make(map[string]model.Record),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	l.load()
	return l
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Sidecar returns the path corrupt content was moved to during Load,
// or an empty string if the file loaded cleanly.
func (l *Ledger) Sidecar() string {
	return l.sidecar
}

// Get returns the record for a canonical URL.
func (l *Ledger) Get(url string) (model.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[url]
	return rec, ok
}

// Put inserts or replaces the record keyed by its canonical URL.
// The change is in memory only until Save.
func (l *Ledger) Put(rec model.Record) error {
	if strings.TrimSpace(rec.CanonicalURL) == "" {
		return ErrEmptyURL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[rec.CanonicalURL] = rec
	return nil
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}

// Records returns all records sorted by canonical URL.
func (l *Ledger) Records() []model.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	recs := make([]model.Record, 0, len(l.records))
	for _, rec := range l.records {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b model.Record) int {
		return strings.Compare(a.CanonicalURL, b.CanonicalURL)
	})
	return recs
}

// Pending returns the downstream work list: records with a downloaded
// artifact that have not been processed yet, sorted by canonical URL.
func (l *Ledger) Pending() []model.Record {
	var pending []model.Record
	for _, rec := range l.Records() {
		if rec.IsPending() {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Save overwrites the ledger file with the current records.
// Keys are written in sorted order with two-space indentation.
func (l *Ledger) Save() error {
	l.mu.RLock()
	data, err := encode(l.records)
	n := len(l.records)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil { //nolint:gosec // The ledger is read by the downstream stage
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	l.logger.Debug("ledger saved", "path", l.path, "records", n)
	return nil
}

// encode renders records as indented JSON.
// HTML escaping is off so query strings keep a literal '&'.
func encode(records map[string]model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// load fills l.records from disk. See Load for the failure policy.
func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("no ledger yet, starting empty", "path", l.path)
			return
		}
		l.logger.Warn("failed to read ledger, starting empty", "path", l.path, "error", err)
		return
	}

	if len(bytes.TrimSpace(data)) == 0 {
		l.logger.Warn("ledger is empty, starting empty", "path", l.path)
		return
	}

	var raw map[string]model.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		l.logger.Warn("ledger is corrupt, starting empty", "path", l.path, "error", err)
		l.preserveCorrupt()
		return
	}

	for key, rec := range raw {
		if strings.TrimSpace(key) == "" {
			continue
		}
		canonical := canonicalKey(key)
		if canonical != key {
			l.logger.Info("ledger key rewritten to canonical form", "key", key, "canonical", canonical)
		}
		rec.CanonicalURL = canonical
		if prev, ok := l.records[canonical]; ok {
			rec = merge(prev, rec)
		}
		l.records[canonical] = rec
	}

	l.logger.Debug("ledger loaded", "path", l.path, "records", len(l.records))
}

// canonicalKey returns key in the form discovery produces, so records
// written under a raw non-ASCII URL keep matching. Unparseable keys are
// returned unchanged.
func canonicalKey(key string) string {
	u, err := url.Parse(key)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return key
	}
	return u.String()
}

// merge combines two records that map to the same canonical URL.
// Downstream progress is never lost: a processed record wins, and missing
// fields are filled from the other record.
func merge(a, b model.Record) model.Record {
	if b.Processed && !a.Processed {
		a, b = b, a
	}
	if a.DisplayText == "" {
		a.DisplayText = b.DisplayText
	}
	if a.LocalPath == "" {
		a.LocalPath = b.LocalPath
	}
	if a.GeneratedArtifactPath == "" {
		a.GeneratedArtifactPath = b.GeneratedArtifactPath
	}
	return a
}

// preserveCorrupt moves the unreadable ledger next to itself under a
// timestamped name.
func (l *Ledger) preserveCorrupt() {
	sidecar := l.path + ".corrupt-" + l.now().UTC().Format(corruptSuffixLayout)
	if err := os.Rename(l.path, sidecar); err != nil {
		l.logger.Warn("failed to preserve corrupt ledger", "path", l.path, "error", err)
		return
	}
	l.sidecar = sidecar
	l.logger.Warn("corrupt ledger preserved", "sidecar", sidecar)
}
