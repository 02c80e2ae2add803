// Package robotstxt decides crawl permissions from robots.txt files.
package robotstxt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/temoto/robotstxt"
)

// DefaultTTL is how long fetched rules are reused.
const DefaultTTL = 30 * time.Minute

var _ sitechat.RobotsPolicy = (*Policy)(nil)

// Policy implements sitechat.RobotsPolicy with per-host cached rules.
// It fails open: when robots.txt cannot be fetched or parsed, every path
// on the host is allowed until the cache entry expires.
type Policy struct {
	client    *http.Client
	userAgent string

	// TTL overrides DefaultTTL when positive.
	TTL    time.Duration
	Logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	fetched time.Time
	// rules is nil when the host's robots.txt was unusable.
	rules *robotstxt.RobotsData
}

// NewPolicy creates a Policy that identifies itself as userAgent.
// A nil client uses a client with a 10 second timeout.
func NewPolicy(client *http.Client, userAgent string) *Policy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Policy{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]cacheEntry),
	}
}

// Allowed reports whether rawURL may be fetched.
func (p *Policy) Allowed(ctx context.Context, rawURL string) bool {
	target, err := url.Parse(rawURL)
	if err != nil || !target.IsAbs() {
		return false
	}

	rules := p.rules(ctx, target)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(p.userAgent)
	if group == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return group.Test(path)
}

// Purge evicts cached rules for a host.
func (p *Policy) Purge(host string) {
	host = strings.ToLower(strings.TrimSpace(host))
	p.mu.Lock()
	delete(p.cache, host)
	p.mu.Unlock()
}

func (p *Policy) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Host)

	p.mu.RLock()
	entry, ok := p.cache[host]
	p.mu.RUnlock()
	if ok && time.Since(entry.fetched) < p.ttl() {
		return entry.rules
	}

	rules, err := p.fetch(ctx, target.Scheme+"://"+target.Host+"/robots.txt")
	if err != nil {
		p.logger().Warn("robots.txt unavailable, allowing all", "host", host, "err", err)
		if ctx.Err() != nil {
			return nil
		}
	}

	p.mu.Lock()
	p.cache[host] = cacheEntry{fetched: time.Now(), rules: rules}
	p.mu.Unlock()
	return rules
}

func (p *Policy) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("robots returned status %d", resp.StatusCode)
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}

func (p *Policy) ttl() time.Duration {
	if p.TTL > 0 {
		return p.TTL
	}
	return DefaultTTL
}

func (p *Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
