package model

// Outcome describes what a crawl run did with one candidate link.
//
// The values follow the per-URL state machine: a candidate either is
// skipped because the ledger already holds a valid artifact, or is
// downloaded (new or again) and ends up acquired or discarded.
type Outcome int

const (
	// OutcomeSkipped means the ledger already had a valid artifact.
	OutcomeSkipped Outcome = iota

	// OutcomeAcquired means a new or repeated download passed validation
	// and the ledger was updated.
	OutcomeAcquired

	// OutcomeDiscarded means the download failed or was invalid.
	// The ledger is untouched and the URL is retried on the next run.
	OutcomeDiscarded
)

// String returns the lowercase name used in logs and the run journal.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAcquired:
		return "acquired"
	case OutcomeDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// ParseOutcome converts the String form back to an Outcome.
// Unknown names return false.
func ParseOutcome(s string) (Outcome, bool) {
	switch s {
	case "skipped":
		return OutcomeSkipped, true
	case "acquired":
		return OutcomeAcquired, true
	case "discarded":
		return OutcomeDiscarded, true
	default:
		return 0, false
	}
}
