package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docharvest/internal/harvest"
	"github.com/nao1215/docharvest/internal/model"
)

// FileName is the journal database file inside the history directory.
const FileName = "history.db"

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Journal stores crawl runs and their per-link outcomes.
// It implements harvest.Recorder.
type Journal struct {
	db     *sql.DB
	dbPath string
}

var _ harvest.Recorder = (*Journal)(nil)

// Options configures Journal behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the journal in dbDir.
// With CreateIfNotExists unset, a missing database is an error.
func Open(dbDir string, opts Options) (*Journal, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("journal not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check journal path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := j.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started TEXT NOT NULL,
		finished TEXT,
		seeds INTEGER NOT NULL DEFAULT 0,
		discovered INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		acquired INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		result_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seed TEXT NOT NULL,
		url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		local_path TEXT,
		error TEXT,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url);
	`
	_, err := j.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts the row for a new run.
func (j *Journal) StartRun(ctx context.Context, runID string, started time.Time, seeds int) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, started, seeds) VALUES (?, ?, ?)`,
		runID, formatTimestamp(started), seeds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// RecordEntry stores one link decision.
func (j *Journal) RecordEntry(ctx context.Context, runID string, e harvest.Entry) error {
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO outcomes (run_id, seed, url, outcome, local_path, error, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Seed, e.URL, e.Outcome.String(), e.LocalPath, e.Error, formatTimestamp(e.At),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// FinishRun stores the counts and the full result of a run.
// A run that was never started is inserted.
func (j *Journal) FinishRun(ctx context.Context, r *harvest.Result) error {
	resultJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
	INSERT INTO runs (id, started, finished, seeds, discovered, skipped, acquired, failures, cancelled, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished = excluded.finished,
		seeds = excluded.seeds,
		discovered = excluded.discovered,
		skipped = excluded.skipped,
		acquired = excluded.acquired,
		failures = excluded.failures,
		cancelled = excluded.cancelled,
		result_json = excluded.result_json`,
		r.RunID,
		formatTimestamp(r.Started),
		formatTimestamp(r.Finished),
		r.Seeds,
		r.Discovered,
		r.Skipped,
		len(r.Acquired),
		len(r.Failures),
		r.Cancelled,
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RunSummary is one line of run history.
type RunSummary struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Seeds      int
	Discovered int
	Skipped    int
	Acquired   int
	Failures   int
	Cancelled  bool
}

// Duration returns the run's wall time, or zero for an unfinished run.
func (s RunSummary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// ListRuns returns the most recent runs, newest first.
// A limit of zero or less returns every run.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, started, finished, seeds, discovered, skipped, acquired, failures, cancelled
	FROM runs
	ORDER BY started DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		var finished sql.NullString
		if err := rows.Scan(&s.ID, &started, &finished, &s.Seeds, &s.Discovered, &s.Skipped, &s.Acquired, &s.Failures, &s.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Started = parseTimestamp(started)
		if finished.Valid {
			s.Finished = parseTimestamp(finished.String)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// GetRun returns the stored result of a finished run.
func (j *Journal) GetRun(ctx context.Context, runID string) (*harvest.Result, error) {
	var resultJSON sql.NullString
	err := j.db.QueryRowContext(ctx, `SELECT result_json FROM runs WHERE id = ?`, runID).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if !resultJSON.Valid {
		return nil, fmt.Errorf("%w: %s has not finished", ErrRunNotFound, runID)
	}

	var r harvest.Result
	if err := json.Unmarshal([]byte(resultJSON.String), &r); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &r, nil
}

// URLHistory returns every recorded decision for a document URL, oldest first.
func (j *Journal) URLHistory(ctx context.Context, rawURL string) ([]harvest.Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
	SELECT seed, url, outcome, local_path, error, timestamp
	FROM outcomes
	WHERE url = ?
	ORDER BY id ASC`, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var entries []harvest.Entry
	for rows.Next() {
		var e harvest.Entry
		var outcome, timestamp string
		var localPath, errMsg sql.NullString
		if err := rows.Scan(&e.Seed, &e.URL, &outcome, &localPath, &errMsg, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o, ok := model.ParseOutcome(outcome)
		if !ok {
			continue
		}
		e.Outcome = o
		e.LocalPath = localPath.String
		e.Error = errMsg.String
		e.At = parseTimestamp(timestamp)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// timestampLayout is RFC 3339 with fixed-width nanoseconds, so that the
// text order of stored UTC timestamps is their time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
