package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrNoSeeds is returned when neither a seed file nor seed URLs are given.
	ErrNoSeeds = errors.New("no seeds specified: provide seed URLs or use --seeds")

	// ErrNoLedgerPath is returned when the ledger path is empty.
	ErrNoLedgerPath = errors.New("no ledger path specified")

	// ErrNoDownloadDir is returned when the download directory is empty.
	ErrNoDownloadDir = errors.New("no download directory specified")

	// ErrInvalidExtension is returned when the extension is not of the form ".ext".
	ErrInvalidExtension = errors.New("invalid extension: must start with '.' (e.g. .pdf)")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxDocumentSize is returned when the size cap is not positive.
	ErrInvalidMaxDocumentSize = errors.New("invalid max document size: must be positive")

	// ErrUnknownValidator is returned for an unrecognized validator strategy.
	ErrUnknownValidator = errors.New("unknown validator: use magic, structural, or command")

	// ErrEmptyValidatorCommand is returned when the command strategy has no command.
	ErrEmptyValidatorCommand = errors.New("validator command is empty")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingVerbosity is returned when both --verbose and --quiet are set.
	ErrConflictingVerbosity = errors.New("conflicting verbosity: --verbose and --quiet cannot be used together")
)
