package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behavior of the scripts the ledger format comes from,
// so an existing ledger and download directory keep working unchanged.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docharvest"

	// DefaultExtension is the document extension discovery looks for.
	DefaultExtension = ".pdf"

	// DefaultTimeout bounds a single document download.
	// Documents can be tens of megabytes on slow government servers.
	DefaultTimeout = 30 * time.Second

	// DefaultPageTimeout bounds a single seed page fetch.
	DefaultPageTimeout = 15 * time.Second

	// DefaultCrawlDelay is the minimum gap between two network requests.
	// Zero keeps the sequential behavior without any extra pause.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultMaxDocumentSize caps the bytes written for one document.
	DefaultMaxDocumentSize = 100 * 1024 * 1024 // 100MB

	// DefaultMaxPageSize caps the bytes read from one seed page.
	DefaultMaxPageSize = 10 * 1024 * 1024 // 10MB

	// DefaultLedgerFile is the ledger file name inside the data directory.
	DefaultLedgerFile = "processed_files.json"

	// DefaultDownloadDir is the download directory name inside the data directory.
	DefaultDownloadDir = "downloads"

	// DefaultUserAgent is a browser-like identity.
	// Several target sites reject requests from non-browser agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultAccept advertises PDF first, then the usual browser types.
	DefaultAccept = "application/pdf,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8"

	// DefaultAcceptLanguage prefers Japanese, since most seed pages are Japanese.
	DefaultAcceptLanguage = "ja,en-US;q=0.9,en;q=0.8"
)

// Validator strategy names.
const (
	// ValidatorMagic checks the leading signature bytes.
	ValidatorMagic = "magic"

	// ValidatorStructural parses the document and requires at least one page.
	ValidatorStructural = "structural"

	// ValidatorCommand delegates to an external identification tool.
	ValidatorCommand = "command"
)

// DefaultValidatorCommand identifies a file's MIME type with file(1).
var DefaultValidatorCommand = []string{"file", "--brief", "--mime-type"}

// Config holds all configuration options for a docharvest run.
// This struct is populated from the config file and CLI flags and passed
// through the application via dependency injection rather than global state.
type Config struct {
	// SeedsFile is the newline-delimited seed list.
	SeedsFile string

	// Seeds holds seed URLs given directly on the command line.
	// They are crawled after the entries of SeedsFile.
	Seeds []string

	// LedgerPath is the JSON ledger file.
	LedgerPath string

	// DownloadDir is the flat directory documents are written to.
	DownloadDir string

	// Extension is the document extension matched during discovery.
	Extension string

	// Timeout bounds each document download.
	Timeout time.Duration

	// PageTimeout bounds each seed page fetch.
	PageTimeout time.Duration

	// CrawlDelay is the minimum gap between two network requests.
	CrawlDelay time.Duration

	// MaxDocumentSize caps the bytes written for a single document.
	MaxDocumentSize int64

	// Validator selects the document validity strategy.
	Validator string

	// ValidatorCommand is the external tool used by the command strategy.
	// The document path is appended as the last argument.
	ValidatorCommand []string

	// RespectRobots drops candidates that robots.txt disallows.
	RespectRobots bool

	// Lock takes an advisory lock next to the ledger for the whole run.
	Lock bool

	// Proxy is an optional SOCKS5 proxy address in host:port form.
	Proxy string

	// Verbose enables debug logging.
	Verbose bool

	// Quiet limits logging to warnings and errors.
	Quiet bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// SaveHistory records each run in the SQLite journal.
	SaveHistory bool

	// HistoryDir is the directory holding the journal database.
	HistoryDir string

	// ReportFile is where the run report is written. Empty means stdout.
	ReportFile string

	// JSONReport writes the run report as JSON.
	JSONReport bool

	// MarkdownReport writes the run report as Markdown.
	MarkdownReport bool

	// ConfigFilePath is the explicitly requested config file, if any.
	ConfigFilePath string

	// SiteConfigs holds identity defaults and per-site rules from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
// Data locations default to the XDG data directory.
func NewConfig() *Config {
	return &Config{
		LedgerPath:       filepath.Join(XDGDataDir(), DefaultLedgerFile),
		DownloadDir:      filepath.Join(XDGDataDir(), DefaultDownloadDir),
		Extension:        DefaultExtension,
		Timeout:          DefaultTimeout,
		PageTimeout:      DefaultPageTimeout,
		CrawlDelay:       DefaultCrawlDelay,
		MaxDocumentSize:  DefaultMaxDocumentSize,
		Validator:        ValidatorMagic,
		ValidatorCommand: append([]string(nil), DefaultValidatorCommand...),
		SaveHistory:      true,
		HistoryDir:       XDGDataDir(),
		SiteConfigs:      NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for docharvest.
// On Linux: ~/.local/share/docharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docharvest.
// On Linux: ~/.config/docharvest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ApplyFile copies the settings present in the config file onto c.
// Zero values in the file leave the current value untouched, so callers
// apply the file first and CLI flags afterwards.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f

	s := f.Settings
	if s.Seeds != "" {
		c.SeedsFile = s.Seeds
	}
	if s.Ledger != "" {
		c.LedgerPath = s.Ledger
	}
	if s.Downloads != "" {
		c.DownloadDir = s.Downloads
	}
	if s.Extension != "" {
		c.Extension = s.Extension
	}
	if s.Timeout != 0 {
		c.Timeout = s.Timeout
	}
	if s.PageTimeout != 0 {
		c.PageTimeout = s.PageTimeout
	}
	if s.CrawlDelay != 0 {
		c.CrawlDelay = s.CrawlDelay
	}
	if s.MaxDocumentSize != 0 {
		c.MaxDocumentSize = s.MaxDocumentSize
	}
	if s.Validator != "" {
		c.Validator = s.Validator
	}
	if len(s.ValidatorCommand) > 0 {
		c.ValidatorCommand = s.ValidatorCommand
	}
	if s.RespectRobots {
		c.RespectRobots = true
	}
	if s.Lock {
		c.Lock = true
	}
	if s.Proxy != "" {
		c.Proxy = s.Proxy
	}
	if s.History != nil {
		c.SaveHistory = *s.History
	}
	if s.HistoryDir != "" {
		c.HistoryDir = s.HistoryDir
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.SeedsFile == "" && len(c.Seeds) == 0 {
		return ErrNoSeeds
	}

	if strings.TrimSpace(c.LedgerPath) == "" {
		return ErrNoLedgerPath
	}

	if strings.TrimSpace(c.DownloadDir) == "" {
		return ErrNoDownloadDir
	}

	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return ErrInvalidExtension
	}

	if c.Timeout <= 0 || c.PageTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.MaxDocumentSize <= 0 {
		return ErrInvalidMaxDocumentSize
	}

	switch c.Validator {
	case ValidatorMagic, ValidatorStructural:
	case ValidatorCommand:
		if len(c.ValidatorCommand) == 0 || strings.TrimSpace(c.ValidatorCommand[0]) == "" {
			return ErrEmptyValidatorCommand
		}
	default:
		return ErrUnknownValidator
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.Verbose && c.Quiet {
		return ErrConflictingVerbosity
	}

	return nil
}
