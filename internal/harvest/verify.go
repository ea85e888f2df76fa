package harvest

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docharvest/internal/model"
	"github.com/nao1215/docharvest/internal/validator"
)

// Check is the verification state of one ledger record.
type Check struct {
	Record model.Record

	// Valid reports whether the recorded file passes validation.
	// A record without a file is never valid.
	Valid bool
}

// WillRefetch reports whether the next run downloads the record again.
func (c Check) WillRefetch() bool {
	return !c.Valid
}

// Verifier re-validates the files a ledger points at without changing
// anything. It answers "what would the next run download again".
type Verifier struct {
	validator   validator.Validator
	concurrency int
	logger      *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithConcurrency sets how many files are validated at once.
// The default is the number of CPUs.
func WithConcurrency(n int) VerifierOption {
	return func(v *Verifier) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a Verifier using val.
func NewVerifier(val validator.Validator, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		validator:   val,
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// Verify validates every record's file. Results keep the order of records.
// If ctx is cancelled it returns ctx's error together with the checks that
// completed; records never checked are left out.
func (v *Verifier) Verify(ctx context.Context, records []model.Record) ([]Check, error) {
	checks := make([]Check, len(records))
	done := make([]bool, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, rec := range records {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each goroutine owns index i, so no lock is needed.
			checks[i] = Check{
				Record: rec,
				Valid:  rec.HasArtifact() && v.validator.IsValid(rec.LocalPath),
			}
			done[i] = true
			if !checks[i].Valid {
				v.logger.Debug("record will be downloaded again", "url", rec.CanonicalURL, "path", rec.LocalPath)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		completed := make([]Check, 0, len(checks))
		for i, c := range checks {
			if done[i] {
				completed = append(completed, c)
			}
		}
		return completed, err
	}
	return checks, nil
}
