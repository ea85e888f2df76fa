package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/nao1215/docharvest/internal/httpclient"
)

// maxRobotsSize caps the bytes read from a robots.txt file.
const maxRobotsSize = 512 * 1024

// Robots answers robots.txt questions for candidate URLs.
// Each host's robots.txt is fetched once and cached for the lifetime of
// the Robots value. A robots.txt that cannot be fetched or parsed allows
// everything.
type Robots struct {
	client  *http.Client
	profile httpclient.Profile
	logger  *slog.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// RobotsOption configures a Robots checker.
type RobotsOption func(*Robots)

// WithRobotsLimiter makes every robots.txt fetch wait on limiter, the one
// the rest of the run's requests share.
func WithRobotsLimiter(limiter *rate.Limiter) RobotsOption {
	return func(r *Robots) {
		r.limiter = limiter
	}
}

// NewRobots creates a Robots checker. The agent tested against the rules is
// the User-Agent of the identity profile resolves for each host.
func NewRobots(client *http.Client, profile httpclient.Profile, logger *slog.Logger, opts ...RobotsOption) *Robots {
	if profile == nil {
		profile = httpclient.Static(httpclient.DefaultIdentity())
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Robots{
		client:  client,
		profile: profile,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allowed reports whether rawURL may be fetched.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := r.rulesFor(ctx, u)
	if data == nil {
		return true
	}

	agent := r.profile.IdentityFor(u).UserAgent
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return data.TestAgent(target, agent)
}

// rulesFor returns the cached rules for u's origin, fetching them on first use.
// A nil result means no restrictions.
func (r *Robots) rulesFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, cached := r.cache[origin]
	r.mu.Unlock()
	if cached {
		return data
	}

	data = r.fetch(ctx, origin+"/robots.txt")
	if ctx.Err() != nil {
		// Cancelled fetches are not cached.
		return data
	}

	r.mu.Lock()
	r.cache[origin] = data
	r.mu.Unlock()
	return data
}

// fetch downloads and parses one robots.txt.
func (r *Robots) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Debug("robots.txt fetch cancelled, allowing all", "url", robotsURL, "error", err)
			return nil
		}
	}

	resp, err := httpclient.Get(ctx, r.client, r.profile, robotsURL, "")
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		r.logger.Debug("robots.txt unreadable, allowing all", "url", robotsURL, "error", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		r.logger.Debug("robots.txt unparseable, allowing all", "url", robotsURL, "error", err)
		return nil
	}
	return data
}
