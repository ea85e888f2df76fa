// Package validator decides whether a file on disk is a genuine PDF document.
//
// Servers frequently answer a document URL with an HTML error or login page
// and a 200 status, so the HTTP response alone proves nothing. Every
// download is checked by a Validator before it may enter the ledger, and
// the same check decides on later runs whether a recorded file is still
// usable or has to be fetched again.
//
// Three strategies are available:
//   - Magic: the leading bytes carry the %PDF signature (default)
//   - Structural: Magic, then the document parses and has at least one page
//   - Command: an external identification tool reports application/pdf
//
// Validators only read the file. They never modify or delete it.
package validator

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnknownStrategy is returned by New for an unrecognized strategy name.
var ErrUnknownStrategy = errors.New("unknown validator strategy")

// Validator reports whether the file at path is a valid document.
// A missing file, a directory or an unreadable file is never valid.
type Validator interface {
	IsValid(path string) bool
	Name() string
}

// Strategy names accepted by New.
const (
	StrategyMagic      = "magic"
	StrategyStructural = "structural"
	StrategyCommand    = "command"
)

// New returns the validator for a strategy name.
// command is only used by the command strategy; nil selects DefaultCommand.
func New(strategy string, command []string) (Validator, error) {
	switch strategy {
	case StrategyMagic, "":
		return Magic{}, nil
	case StrategyStructural:
		return Structural{}, nil
	case StrategyCommand:
		return NewCommand(command...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// regularFile reports whether path names an existing regular file.
func regularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
