package downloader

import (
	"errors"

	"github.com/nao1215/docharvest/internal/httpclient"
)

var (
	// ErrTransport is returned when the document could not be retrieved.
	// Errors wrapping it carry the underlying cause.
	ErrTransport = errors.New("document transfer failed")

	// ErrInvalidDocument is returned when the retrieved bytes fail validation.
	ErrInvalidDocument = errors.New("downloaded file is not a valid document")

	// ErrHTTPStatus is returned, together with ErrTransport, when the server
	// answers with a non-2xx status.
	ErrHTTPStatus = httpclient.ErrHTTPStatus

	// ErrTooLarge is returned, together with ErrTransport, when the body
	// exceeds the configured size cap.
	ErrTooLarge = errors.New("document exceeds size limit")
)
