package downloader

import (
	"context"
	"crypto/md5" //nolint:gosec // file naming only
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/nao1215/docharvest/internal/config"
	"github.com/nao1215/docharvest/internal/httpclient"
	"github.com/nao1215/docharvest/internal/validator"
)

const (
	// filePrefix and fileSuffix surround the URL hash in file names.
	filePrefix = "doc_"
	fileSuffix = ".pdf"

	// hashLength is the number of hex characters kept from the URL hash.
	hashLength = 10

	// partSuffix marks a file that is still being written.
	partSuffix = ".part"
)

// Downloader fetches documents into a directory.
type Downloader struct {
	client    *http.Client
	dir       string
	profile   httpclient.Profile
	validator validator.Validator
	maxSize   int64
	logger    *slog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithProfile sets the identity profile used for document requests.
func WithProfile(p httpclient.Profile) Option {
	return func(d *Downloader) {
		d.profile = p
	}
}

// WithValidator sets the validator gating every download.
func WithValidator(v validator.Validator) Option {
	return func(d *Downloader) {
		d.validator = v
	}
}

// WithMaxSize caps the number of bytes written for one document.
func WithMaxSize(n int64) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// New creates a Downloader writing into dir.
// The client's timeout bounds each download.
func New(client *http.Client, dir string, opts ...Option) *Downloader {
	d := &Downloader{
		client:    client,
		dir:       dir,
		profile:   httpclient.Static(httpclient.DefaultIdentity()),
		validator: validator.Magic{},
		maxSize:   config.DefaultMaxDocumentSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Dir returns the download directory.
func (d *Downloader) Dir() string {
	return d.dir
}

// FileName returns the file name a document URL is stored under:
// "doc_" followed by the first ten hex digits of the MD5 of the full URL,
// query included.
func FileName(rawURL string) string {
	sum := md5.Sum([]byte(rawURL)) //nolint:gosec // file naming only
	return filePrefix + hex.EncodeToString(sum[:])[:hashLength] + fileSuffix
}

// PathFor returns the path rawURL is stored at inside the download directory.
func (d *Downloader) PathFor(rawURL string) string {
	return filepath.Join(d.dir, FileName(rawURL))
}

// Fetch downloads rawURL, sending referer as the Referer header, and returns
// the path of the validated file.
//
// The body is validated as a ".part" file and only renamed into place when
// it passes, so the target path never holds invalid bytes. On any failure
// no file is left behind at the returned path's location.
// Transport failures wrap ErrTransport; a file that fails validation
// returns ErrInvalidDocument.
func (d *Downloader) Fetch(ctx context.Context, rawURL, referer string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	resp, err := httpclient.Get(ctx, d.client, d.profile, rawURL, referer)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	// The server's content type is informational; validation decides.
	d.logger.Debug("downloading document",
		"url", rawURL,
		"contentType", resp.Header.Get("Content-Type"),
		"contentLength", resp.ContentLength,
	)

	dst := d.PathFor(rawURL)
	part := dst + partSuffix
	if err := d.writePart(resp.Body, part); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("%w: %s: %w", ErrTransport, rawURL, err)
	}

	if !d.validator.IsValid(part) {
		_ = os.Remove(part)
		// A file left at dst by an earlier run is superseded by this attempt.
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove stale document", "path", dst, "error", err)
		}
		return "", fmt.Errorf("%w: %s (validator %s)", ErrInvalidDocument, rawURL, d.validator.Name())
	}

	if err := os.Rename(part, dst); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("moving document into place: %w", err)
	}

	return dst, nil
}

// writePart streams body into path, failing when more than maxSize bytes arrive.
func (d *Downloader) writePart(body io.Reader, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:gosec // documents are meant to be shared
	if err != nil {
		return err
	}

	// Read one byte past the cap to tell "exactly maxSize" from "too large".
	n, err := io.Copy(f, io.LimitReader(body, d.maxSize+1))
	if err != nil {
		_ = f.Close()
		return err
	}
	if n > d.maxSize {
		_ = f.Close()
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, d.maxSize)
	}
	return f.Close()
}
