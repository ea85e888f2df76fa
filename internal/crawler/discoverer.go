package crawler

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/docharvest/internal/config"
	"github.com/nao1215/docharvest/internal/httpclient"
	"github.com/nao1215/docharvest/internal/model"
)

// Discoverer fetches seed pages and reports the document links on them.
type Discoverer struct {
	client      *http.Client
	profile     httpclient.Profile
	parser      *Parser
	policy      *Policy
	robots      *Robots
	maxPageSize int64
	logger      *slog.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithProfile sets the identity profile used for seed page requests.
func WithProfile(p httpclient.Profile) DiscovererOption {
	return func(d *Discoverer) {
		d.profile = p
	}
}

// WithExtension sets the document extension to look for, e.g. ".pdf".
func WithExtension(ext string) DiscovererOption {
	return func(d *Discoverer) {
		d.parser = NewParser(ext)
	}
}

// WithPolicy sets the inclusion policy applied to candidates.
func WithPolicy(p *Policy) DiscovererOption {
	return func(d *Discoverer) {
		d.policy = p
	}
}

// WithRobots enables the robots.txt check.
func WithRobots(r *Robots) DiscovererOption {
	return func(d *Discoverer) {
		d.robots = r
	}
}

// WithMaxPageSize caps the bytes read from a seed page.
func WithMaxPageSize(n int64) DiscovererOption {
	return func(d *Discoverer) {
		d.maxPageSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// NewDiscoverer creates a Discoverer using client for page requests.
// The client's timeout bounds each page fetch.
func NewDiscoverer(client *http.Client, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		client:      client,
		profile:     httpclient.Static(httpclient.DefaultIdentity()),
		parser:      NewParser(config.DefaultExtension),
		maxPageSize: config.DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Discover returns the candidate links on seedURL.
// Every failure is logged and yields an empty result.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) []model.Link {
	links, err := d.DiscoverPage(ctx, seedURL)
	if err != nil {
		d.logger.Warn("failed to discover links", "seed", seedURL, "error", err)
		return nil
	}
	return links
}

// DiscoverPage is Discover with the failure reported to the caller.
func (d *Discoverer) DiscoverPage(ctx context.Context, seedURL string) ([]model.Link, error) {
	pageURL, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}

	resp, err := httpclient.Get(ctx, d.client, d.profile, seedURL, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Redirects change the base that relative links resolve against.
	if resp.Request != nil && resp.Request.URL != nil {
		pageURL = resp.Request.URL
	}

	contentType := resp.Header.Get("Content-Type")
	body, err := charset.NewReader(io.LimitReader(resp.Body, d.maxPageSize), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", seedURL, err)
	}

	candidates, err := d.parser.Parse(body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", seedURL, err)
	}

	links := make([]model.Link, 0, len(candidates))
	for _, link := range candidates {
		if !d.policy.Allow(link.URL) {
			d.logger.Debug("candidate filtered by inclusion policy", "seed", seedURL, "url", link.URL)
			continue
		}
		if d.robots != nil && !d.robots.Allowed(ctx, link.URL) {
			d.logger.Debug("candidate disallowed by robots.txt", "seed", seedURL, "url", link.URL)
			continue
		}
		links = append(links, link)
	}

	d.logger.Debug("discovered links",
		"seed", seedURL,
		"candidates", len(candidates),
		"kept", len(links),
		"contentType", contentType,
	)
	return links, nil
}

// All yields (seed, link) pairs for every seed in order.
// Pages are fetched lazily as iteration reaches them; ranging again
// fetches them again. Iteration stops early when ctx is done.
func (d *Discoverer) All(ctx context.Context, seeds []string) iter.Seq2[string, model.Link] {
	return func(yield func(string, model.Link) bool) {
		for _, seed := range seeds {
			if ctx.Err() != nil {
				return
			}
			for _, link := range d.Discover(ctx, seed) {
				if !yield(seed, link) {
					return
				}
			}
		}
	}
}
