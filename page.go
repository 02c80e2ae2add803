package sitechat

import "context"

// Page is one crawled page. It exists only while a job runs.
type Page struct {
	URL   string
	Depth int
	Title string

	// Text is the extracted main content as Markdown.
	Text string

	// Links holds absolute outbound links in document order.
	Links []string

	// Hash is a content fingerprint of Text.
	Hash string
}

// PageFetcher retrieves a page and extracts its text and outbound links.
// Implementations hide rendering, boilerplate removal and conversion.
// Depth is left for the caller to set.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*Page, error)
}

// CrawlRequest bounds a breadth-first crawl.
type CrawlRequest struct {
	SeedURL  string
	MaxPages int
	MaxDepth int

	// UseSitemap seeds the frontier with sitemap URLs at depth 1.
	UseSitemap bool
}

// LinkExtractor finds outbound links in HTML.
type LinkExtractor interface {
	// ExtractLinks returns absolute http(s) links without fragments,
	// deduplicated, in document order. Relative links resolve against baseURL.
	ExtractLinks(html string, baseURL string) ([]string, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// RobotsPolicy decides whether a crawler may fetch a URL.
type RobotsPolicy interface {
	Allowed(ctx context.Context, url string) bool
}
