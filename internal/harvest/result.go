package harvest

import (
	"time"

	"github.com/nao1215/docharvest/internal/model"
)

// Failure stages.
const (
	// StageDiscover marks a seed page that could not be fetched or parsed.
	StageDiscover = "discover"

	// StageDownload marks a document that could not be transferred.
	StageDownload = "download"

	// StageValidate marks a document whose bytes failed validation.
	StageValidate = "validate"
)

// Failure describes one abandoned seed or link.
type Failure struct {
	// Seed is the seed page being processed.
	Seed string `json:"seed"`

	// URL is the document URL. Empty for seed failures.
	URL string `json:"url,omitempty"`

	// Stage is one of StageDiscover, StageDownload, StageValidate.
	Stage string `json:"stage"`

	// Error is the failure message.
	Error string `json:"error"`
}

// Entry is the decision taken for one candidate link.
type Entry struct {
	Seed      string
	URL       string
	Outcome   model.Outcome
	LocalPath string
	Error     string
	At        time.Time
}

// Result summarizes a run.
type Result struct {
	// RunID identifies the run in logs and the journal.
	RunID string `json:"run_id"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Seeds is the number of seed pages given to the run.
	Seeds int `json:"seeds"`

	// Discovered counts distinct candidate URLs.
	Discovered int `json:"discovered"`

	// Skipped counts candidates whose ledger record already had a valid file.
	Skipped int `json:"skipped"`

	// Acquired lists the records written by this run, in the order they
	// were acquired. This is the hand-off to the downstream stage.
	Acquired []model.Record `json:"acquired"`

	// Failures lists every abandoned seed and link.
	Failures []Failure `json:"failures"`

	// Cancelled reports whether the run stopped before visiting every seed.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Discarded returns the number of links that were attempted and failed.
func (r *Result) Discarded() int {
	n := 0
	for _, f := range r.Failures {
		if f.URL != "" {
			n++
		}
	}
	return n
}
