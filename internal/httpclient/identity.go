package httpclient

import (
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/docharvest/internal/config"
)

// Identity describes how requests present themselves to a server.
// Many of the sites documents are collected from refuse requests that do not
// look like a browser, or serve documents only to requests carrying the page
// they were linked from as Referer.
type Identity struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string

	// Cookie is a raw Cookie header value, e.g. "a=1; b=2".
	// It is sent in addition to cookies held by the client's jar.
	Cookie string

	// Headers are extra headers. They are applied last and win over
	// the fields above.
	Headers map[string]string
}

// DefaultIdentity returns the browser-like identity used when nothing is configured.
func DefaultIdentity() Identity {
	return Identity{
		UserAgent:      config.DefaultUserAgent,
		Accept:         config.DefaultAccept,
		AcceptLanguage: config.DefaultAcceptLanguage,
	}
}

// Apply sets the identity headers on req.
// An empty referer leaves the Referer header unset.
func (id Identity) Apply(req *http.Request, referer string) {
	if id.UserAgent != "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}
	if id.Accept != "" {
		req.Header.Set("Accept", id.Accept)
	}
	if id.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", id.AcceptLanguage)
	}
	if id.Cookie != "" {
		if existing := req.Header.Get("Cookie"); existing != "" {
			req.Header.Set("Cookie", existing+"; "+id.Cookie)
		} else {
			req.Header.Set("Cookie", id.Cookie)
		}
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	for key, value := range id.Headers {
		req.Header.Set(key, value)
	}
}

// With returns a copy of id overridden by the non-empty fields of site.
// Header maps are merged, site headers winning.
func (id Identity) With(site config.SiteConfig) Identity {
	out := id
	out.Headers = maps.Clone(id.Headers)

	if site.UserAgent != "" {
		out.UserAgent = site.UserAgent
	}
	if site.Cookie != "" {
		out.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if out.Headers == nil {
			out.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(out.Headers, site.Headers)
	}
	return out
}

// Profile resolves the identity to present for a request URL.
type Profile interface {
	IdentityFor(u *url.URL) Identity
}

// Static is a Profile that returns the same identity for every host.
type Static Identity

// IdentityFor returns the static identity.
func (s Static) IdentityFor(*url.URL) Identity {
	return Identity(s)
}

// SiteProfile resolves identities from the config file: the base identity,
// then the file defaults, then the most specific matching site entry.
type SiteProfile struct {
	base Identity
	file *config.File
}

// NewSiteProfile creates a SiteProfile. A nil file behaves like an empty one.
func NewSiteProfile(base Identity, file *config.File) *SiteProfile {
	if file == nil {
		file = config.NewFile()
	}
	return &SiteProfile{base: base, file: file}
}

// IdentityFor returns the identity for the host of u.
func (p *SiteProfile) IdentityFor(u *url.URL) Identity {
	return p.base.With(p.file.GetSiteConfig(strings.ToLower(u.Hostname())))
}

// resolve returns the identity for rawURL, falling back to the profile's
// answer for an empty URL when rawURL does not parse.
func resolve(p Profile, rawURL string) Identity {
	if p == nil {
		return DefaultIdentity()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		u = &url.URL{}
	}
	return p.IdentityFor(u)
}
