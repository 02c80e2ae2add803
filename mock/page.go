package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.PageFetcher = (*PageFetcher)(nil)

// PageFetcher is a mock implementation of sitechat.PageFetcher.
type PageFetcher struct {
	FetchPageFn func(ctx context.Context, url string) (*sitechat.Page, error)
}

func (f *PageFetcher) FetchPage(ctx context.Context, url string) (*sitechat.Page, error) {
	return f.FetchPageFn(ctx, url)
}

var _ sitechat.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of sitechat.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(html string, baseURL string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]string, error) {
	return e.ExtractLinksFn(html, baseURL)
}

var _ sitechat.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of sitechat.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

var _ sitechat.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy is a mock implementation of sitechat.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn func(ctx context.Context, url string) bool
}

func (p *RobotsPolicy) Allowed(ctx context.Context, url string) bool {
	return p.AllowedFn(ctx, url)
}
