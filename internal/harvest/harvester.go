package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nao1215/docharvest/internal/downloader"
	"github.com/nao1215/docharvest/internal/ledger"
	"github.com/nao1215/docharvest/internal/model"
	"github.com/nao1215/docharvest/internal/validator"
)

// RetryPolicy names how failed links are retried.
type RetryPolicy int

const (
	// RetryOnNextRun abandons a failed link for the current run. The next
	// run re-evaluates the ledger and attempts every URL that is missing
	// or whose file no longer validates.
	RetryOnNextRun RetryPolicy = iota
)

// String returns the policy name.
func (p RetryPolicy) String() string {
	if p == RetryOnNextRun {
		return "retry-on-next-run"
	}
	return "unknown"
}

// LinkSource returns the candidate links of a seed page.
// *crawler.Discoverer implements it.
type LinkSource interface {
	DiscoverPage(ctx context.Context, seedURL string) ([]model.Link, error)
}

// Fetcher downloads a document and returns the path of the validated file.
// *downloader.Downloader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, referer string) (string, error)
}

// Recorder receives the progress of a run. The run journal implements it.
// Recorder errors are logged and never fail the run.
type Recorder interface {
	StartRun(ctx context.Context, runID string, started time.Time, seeds int) error
	RecordEntry(ctx context.Context, runID string, e Entry) error
	FinishRun(ctx context.Context, r *Result) error
}

// Harvester runs crawls against one ledger.
type Harvester struct {
	ledger    *ledger.Ledger
	links     LinkSource
	fetcher   Fetcher
	validator validator.Validator
	limiter   *rate.Limiter
	recorder  Recorder
	lock      bool
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Harvester.
type Option func(*Harvester)

// WithValidator sets the validator used to decide whether a recorded file
// is still good. It should be the one the Fetcher validates with.
func WithValidator(v validator.Validator) Option {
	return func(h *Harvester) {
		h.validator = v
	}
}

// NewLimiter returns a limiter allowing one request per d, or nil when d
// is not positive. Share it with every component that makes requests
// during a run so the gap holds across all of them.
func NewLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// WithDelay spaces network requests at least d apart. Zero disables it.
func WithDelay(d time.Duration) Option {
	return WithLimiter(NewLimiter(d))
}

// WithLimiter gates seed page fetches and document downloads on limiter.
// A nil limiter disables the delay.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(h *Harvester) {
		h.limiter = limiter
	}
}

// WithRecorder sets the recorder that journals the run.
func WithRecorder(r Recorder) Option {
	return func(h *Harvester) {
		h.recorder = r
	}
}

// WithLock makes Run hold an advisory lock on "<ledger>.lock".
func WithLock(enabled bool) Option {
	return func(h *Harvester) {
		h.lock = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harvester) {
		h.logger = logger
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Harvester) {
		h.now = now
	}
}

// New creates a Harvester.
func New(l *ledger.Ledger, links LinkSource, fetcher Fetcher, opts ...Option) *Harvester {
	h := &Harvester{
		ledger:    l,
		links:     links,
		fetcher:   fetcher,
		validator: validator.Magic{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// RetryPolicy returns the policy applied to failed links.
func (h *Harvester) RetryPolicy() RetryPolicy {
	return RetryOnNextRun
}

// LockPath returns the path of the advisory lock file.
func (h *Harvester) LockPath() string {
	return h.ledger.Path() + ".lock"
}

// Run crawls seeds in order and saves the ledger once at the end.
//
// Failures of single seeds or links are collected in the Result and never
// stop the run. Run returns an error only when the lock is held elsewhere,
// when the ledger cannot be saved, or when ctx ends before every seed was
// visited. In the last case the ledger is still saved with the work done
// so far and the partial Result is returned.
func (h *Harvester) Run(ctx context.Context, seeds []string) (*Result, error) {
	if h.lock {
		if err := os.MkdirAll(filepath.Dir(h.LockPath()), 0o750); err != nil {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		fl := flock.New(h.LockPath())
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire ledger lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrLocked, h.LockPath())
		}
		defer func() {
			if err := fl.Unlock(); err != nil {
				h.logger.Warn("failed to release ledger lock", "path", h.LockPath(), "error", err)
			}
		}()
	}

	r := &run{
		Harvester: h,
		result: &Result{
			RunID:    uuid.NewString(),
			Started:  h.now(),
			Seeds:    len(seeds),
			Acquired: []model.Record{},
			Failures: []Failure{},
		},
		seen: make(map[string]struct{}),
	}

	h.logger.Info("crawl started",
		"run", r.result.RunID,
		"seeds", len(seeds),
		"ledger", h.ledger.Path(),
		"records", h.ledger.Len(),
	)
	if h.recorder != nil {
		if err := h.recorder.StartRun(ctx, r.result.RunID, r.result.Started, len(seeds)); err != nil {
			h.logger.Warn("failed to journal run start", "error", err)
		}
	}

	runErr := r.crawl(ctx, seeds)

	r.result.Finished = h.now()
	r.result.Cancelled = runErr != nil

	saveErr := h.ledger.Save()

	if h.recorder != nil {
		// The run context may already be cancelled; the journal entry is still wanted.
		if err := h.recorder.FinishRun(context.WithoutCancel(ctx), r.result); err != nil {
			h.logger.Warn("failed to journal run end", "error", err)
		}
	}

	h.logger.Info("crawl finished",
		"run", r.result.RunID,
		"acquired", len(r.result.Acquired),
		"skipped", r.result.Skipped,
		"failures", len(r.result.Failures),
		"duration", r.result.Duration().Round(time.Millisecond),
	)

	if saveErr != nil {
		return r.result, fmt.Errorf("saving ledger: %w", saveErr)
	}
	if runErr != nil {
		return r.result, runErr
	}
	return r.result, nil
}

// run holds the state of one Run call.
type run struct {
	*Harvester
	result *Result

	// seen holds every canonical URL already handled in this run.
	seen map[string]struct{}
}

// crawl visits every seed. It returns ctx's error when cancelled.
func (r *run) crawl(ctx context.Context, seeds []string) error {
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("crawl cancelled", "seed", seed, "reason", err)
			return err
		}
		if err := r.wait(ctx); err != nil {
			return err
		}

		links, err := r.links.DiscoverPage(ctx, seed)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("failed to discover links", "seed", seed, "error", err)
			r.result.Failures = append(r.result.Failures, Failure{
				Seed:  seed,
				Stage: StageDiscover,
				Error: err.Error(),
			})
			continue
		}
		r.logger.Debug("seed discovered", "seed", seed, "links", len(links))

		for _, link := range links {
			if err := r.handle(ctx, seed, link); err != nil {
				return err
			}
		}
	}
	return nil
}

// handle applies the state machine to one candidate link.
// It returns an error only when ctx ends.
func (r *run) handle(ctx context.Context, seed string, link model.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, dup := r.seen[link.URL]; dup {
		r.logger.Debug("already handled in this run", "url", link.URL, "seed", seed)
		return nil
	}
	r.seen[link.URL] = struct{}{}
	r.result.Discovered++

	rec, known := r.ledger.Get(link.URL)
	if known && rec.HasArtifact() && r.validator.IsValid(rec.LocalPath) {
		r.result.Skipped++
		r.record(ctx, Entry{Seed: seed, URL: link.URL, Outcome: model.OutcomeSkipped, LocalPath: rec.LocalPath})
		return nil
	}
	if known {
		r.logger.Info("recorded file missing or invalid, downloading again", "url", link.URL, "path", rec.LocalPath)
	}

	if err := r.wait(ctx); err != nil {
		return err
	}

	path, err := r.fetcher.Fetch(ctx, link.URL, seed)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stage := StageDownload
		if errors.Is(err, downloader.ErrInvalidDocument) {
			stage = StageValidate
		}
		r.logger.Warn("document discarded", "url", link.URL, "seed", seed, "stage", stage, "error", err)
		r.result.Failures = append(r.result.Failures, Failure{
			Seed:  seed,
			URL:   link.URL,
			Stage: stage,
			Error: err.Error(),
		})
		r.record(ctx, Entry{Seed: seed, URL: link.URL, Outcome: model.OutcomeDiscarded, Error: err.Error()})
		return nil
	}

	updated := rec.Acquired(link, path)
	if err := r.ledger.Put(updated); err != nil {
		// Only an empty URL is rejected, which discovery never produces.
		r.logger.Error("failed to record document", "url", link.URL, "error", err)
		return nil
	}
	r.result.Acquired = append(r.result.Acquired, updated)
	r.logger.Info("document acquired", "url", link.URL, "path", path, "text", updated.DisplayText)
	r.record(ctx, Entry{Seed: seed, URL: link.URL, Outcome: model.OutcomeAcquired, LocalPath: path})
	return nil
}

// wait blocks until the politeness delay allows the next request.
func (r *run) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// record forwards an entry to the recorder, if any.
func (r *run) record(ctx context.Context, e Entry) {
	if r.recorder == nil {
		return
	}
	e.At = r.now()
	if err := r.recorder.RecordEntry(ctx, r.result.RunID, e); err != nil {
		r.logger.Warn("failed to journal entry", "url", e.URL, "error", err)
	}
}
