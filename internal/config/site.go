package config

import (
	"iter"
	"maps"
	"strings"
	"time"
)

// SiteConfig holds site-specific configuration for one host.
// The same structure is used for the defaults block, where Require is ignored.
type SiteConfig struct {
	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Cookie is an HTTP cookie to send to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Require lists substrings of which at least one must appear in a
	// candidate document URL on this host. Empty means every candidate is kept.
	Require []string `yaml:"require,omitempty"`
}

// Settings holds the top-level run settings of the config file.
// Every field is optional; zero values keep the built-in default.
type Settings struct {
	Seeds            string        `yaml:"seeds,omitempty"`
	Ledger           string        `yaml:"ledger,omitempty"`
	Downloads        string        `yaml:"downloads,omitempty"`
	Extension        string        `yaml:"extension,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
	PageTimeout      time.Duration `yaml:"page_timeout,omitempty"`
	CrawlDelay       time.Duration `yaml:"crawl_delay,omitempty"`
	MaxDocumentSize  int64         `yaml:"max_document_size,omitempty"`
	Validator        string        `yaml:"validator,omitempty"`
	ValidatorCommand []string      `yaml:"validator_command,omitempty"`
	RespectRobots    bool          `yaml:"respect_robots,omitempty"`
	Lock             bool          `yaml:"lock,omitempty"`
	Proxy            string        `yaml:"proxy,omitempty"`

	// History turns the run journal off when set to false.
	History *bool `yaml:"history,omitempty"`

	// HistoryDir overrides the directory of the run journal database.
	HistoryDir string `yaml:"history_dir,omitempty"`
}

// File represents the structure of the docharvest configuration file.
type File struct {
	Settings `yaml:",inline"`

	// Defaults contains the identity applied to every host
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps host names to their site-specific configurations.
	// A key also applies to its subdomains, so "gov.example" covers
	// "www.gov.example".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// NewFile returns an empty File with an initialized Sites map.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// LookupSite returns the configuration of the most specific Sites key that
// matches host, either exactly or as a parent domain.
// The matched key is returned alongside so callers can log it.
func (cf *File) LookupSite(host string) (string, SiteConfig, bool) {
	for h := range HostCandidates(host) {
		if site, ok := cf.Sites[h]; ok {
			return h, site, true
		}
	}
	return "", SiteConfig{}, false
}

// HostCandidates yields host and then each parent domain, most specific
// first: "www.gov.example", "gov.example", "example".
// The host is lowercased and a trailing dot is dropped.
func HostCandidates(host string) iter.Seq[string] {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return func(yield func(string) bool) {
		for h := host; h != ""; {
			if !yield(h) {
				return
			}
			i := strings.IndexByte(h, '.')
			if i < 0 {
				return
			}
			h = h[i+1:]
		}
	}
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the matching site configuration with defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)
	result.Require = nil

	_, site, ok := cf.LookupSite(host)
	if !ok {
		return result
	}

	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	result.Require = site.Require

	return result
}
