package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/sitechat"
	"golang.org/x/net/publicsuffix"
)

// Scope limits which discovered links a crawl follows.
type Scope int

const (
	// ScopeSameDomain follows links sharing the seed's registrable domain,
	// so www.example.com and docs.example.com are both in scope.
	ScopeSameDomain Scope = iota
	// ScopeSameHost follows links with exactly the seed's host.
	ScopeSameHost
	// ScopeAny follows every http(s) link.
	ScopeAny
)

// ParseScope converts a configuration value to a Scope.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(s) {
	case "", "domain":
		return ScopeSameDomain, nil
	case "host":
		return ScopeSameHost, nil
	case "any":
		return ScopeAny, nil
	}
	return 0, sitechat.Errorf(sitechat.EINVALID, "unknown crawl scope %q", s)
}

// DefaultExcludePatterns match pages that rarely hold site content:
// account and admin areas, API endpoints, and binary downloads.
var DefaultExcludePatterns = []string{
	`(?i)/(login|logout|register|signup|signin|admin|download|uploads)`,
	`(?i)/(api|auth)/`,
	`(?i)\.(pdf|jpe?g|png|gif|svg|webp|zip|gz|docx?|xlsx?|pptx?|mp3|mp4)$`,
}

var defaultFilter, _ = sitechat.NewURLFilter(nil, DefaultExcludePatterns)

// DefaultFilter returns a filter built from DefaultExcludePatterns.
func DefaultFilter() *sitechat.URLFilter {
	return defaultFilter
}

func (s Scope) contains(seed, u *url.URL) bool {
	switch s {
	case ScopeAny:
		return true
	case ScopeSameHost:
		return strings.EqualFold(seed.Host, u.Host)
	}
	return registrableDomain(seed.Hostname()) == registrableDomain(u.Hostname())
}

func registrableDomain(host string) string {
	host = strings.ToLower(host)
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// normalizeLink parses rawURL and returns it without fragment (and without
// query unless keepQuery is set). The bool result is false for anything that
// is not an absolute http(s) URL.
func normalizeLink(rawURL string, keepQuery bool) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	if !keepQuery {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	return u, true
}
