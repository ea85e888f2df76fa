package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrHTTPStatus is returned by Get for responses outside the 2xx range.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// StatusError carries the status code of a rejected response.
// It matches ErrHTTPStatus with errors.Is.
type StatusError struct {
	URL  string
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d for %s", e.Code, e.URL)
}

// Is reports whether target is ErrHTTPStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
