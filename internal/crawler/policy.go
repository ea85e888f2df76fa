package crawler

import (
	"net/url"
	"strings"

	"github.com/nao1215/docharvest/internal/config"
)

// Rule keeps only the candidates on a domain whose URL contains at least
// one of the required substrings. Some portals link every attachment
// from every page; the rule narrows them to the section that matters,
// e.g. public tender notices under ".../koubo/...".
type Rule struct {
	// Match is a host. It covers the host itself and its subdomains.
	Match string

	// Require lists substrings of the full candidate URL, any of which
	// is enough.
	Require []string
}

// Policy is a set of Rules. The zero value and a nil *Policy accept everything.
type Policy struct {
	rules map[string][]string
}

// NewPolicy creates a Policy from rules. Rules with an empty Match or no
// Require entries are ignored. A later rule for the same Match replaces
// an earlier one.
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make(map[string][]string, len(rules))}
	for _, r := range rules {
		match := strings.ToLower(strings.TrimSpace(r.Match))
		if match == "" || len(r.Require) == 0 {
			continue
		}
		p.rules[match] = r.Require
	}
	return p
}

// PolicyFromConfig builds a Policy from the sites of a config file that
// set require.
func PolicyFromConfig(f *config.File) *Policy {
	if f == nil {
		return NewPolicy()
	}
	rules := make([]Rule, 0, len(f.Sites))
	for host, site := range f.Sites {
		rules = append(rules, Rule{Match: host, Require: site.Require})
	}
	return NewPolicy(rules...)
}

// Len returns the number of active rules.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Allow reports whether the candidate URL passes the policy.
// The most specific rule matching the candidate's host decides; a host
// without a rule is always allowed.
func (p *Policy) Allow(rawURL string) bool {
	if p.Len() == 0 {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	for host := range config.HostCandidates(u.Hostname()) {
		require, ok := p.rules[host]
		if !ok {
			continue
		}
		for _, sub := range require {
			if strings.Contains(rawURL, sub) {
				return true
			}
		}
		return false
	}
	return true
}
