// Package crawl provides bounded breadth-first site crawling.
// A single coordinator owns the frontier, the visited list and the page
// counter while a bounded worker pool performs the fetches.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/sitechat"
)

// Crawler defaults.
const (
	DefaultConcurrency     = 4
	DefaultFetchTimeout    = 30 * time.Second
	DefaultMaxFailureRatio = 0.5
	DefaultMinAttempts     = 5

	// frontierExpectedURLs sizes the Bloom prefilter.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the Bloom prefilter's target error rate.
	frontierFalsePositiveRate = 0.01
	// drainTimeout bounds the wait for in-flight fetches after the crawl stops.
	drainTimeout = 5 * time.Second
)

// ErrTooManyFailures is returned when the share of failed fetches exceeds
// the crawler's MaxFailureRatio.
var ErrTooManyFailures = errors.New("too many failed fetches")

// Crawler performs bounded breadth-first crawls.
type Crawler struct {
	Pages       sitechat.PageFetcher
	RateLimiter sitechat.DomainLimiter

	// Robots, if set, is consulted before each fetch. Disallowed URLs are
	// skipped and do not count as failures.
	Robots sitechat.RobotsPolicy

	// Sitemaps, if set, seeds crawls that request it.
	Sitemaps sitechat.SitemapService

	// Filter selects which discovered links are followed.
	// Nil means DefaultFilter.
	Filter *sitechat.URLFilter

	Scope Scope

	// KeepQuery keeps query strings on discovered links. By default they
	// are dropped so that /page?ref=nav and /page are one URL.
	KeepQuery bool

	// MaxLinksPerPage caps newly enqueued links per page. Zero is unlimited.
	MaxLinksPerPage int

	Concurrency  int
	RetryDelays  []time.Duration
	FetchTimeout time.Duration

	// A crawl aborts once at least MinAttempts fetches were made and more
	// than MaxFailureRatio of them failed.
	MaxFailureRatio float64
	MinAttempts     int

	Logger *slog.Logger
}

// Result holds the outcome of a crawl. It is returned even when the crawl
// fails, reflecting the work done up to that point.
type Result struct {
	// Visited lists every URL claimed for fetching, in claim order.
	Visited []string

	Pages      int
	Failed     int
	Disallowed int
	Bytes      int
}

// Attempts returns the number of completed fetch attempts.
func (r *Result) Attempts() int {
	return r.Pages + r.Failed
}

// PageFunc receives each fetched page. It runs on the coordinator, one page
// at a time; returning an error aborts the crawl with that error.
type PageFunc func(ctx context.Context, page *sitechat.Page) error

type fetchResult struct {
	entry      Entry
	page       *sitechat.Page
	disallowed bool
	err        error
}

// Crawl traverses the site from req.SeedURL breadth-first. No more than
// req.MaxPages pages are fetched successfully, no page deeper than
// req.MaxDepth is fetched, and links found at req.MaxDepth are not followed.
//
// Failed fetches are skipped. The crawl fails with ErrTooManyFailures when
// the failure ratio is exceeded, and also when every attempted fetch failed.
func (c *Crawler) Crawl(ctx context.Context, req sitechat.CrawlRequest, onPage PageFunc) (*Result, error) {
	seed, ok := normalizeLink(req.SeedURL, true)
	if !ok {
		return nil, sitechat.Errorf(sitechat.EINVALID, "invalid seed URL %q", req.SeedURL)
	}
	if req.MaxPages < 1 {
		return nil, sitechat.Errorf(sitechat.EINVALID, "max pages must be positive")
	}
	if req.MaxDepth < 0 {
		return nil, sitechat.Errorf(sitechat.EINVALID, "max depth must not be negative")
	}

	logger := c.logger()
	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(Entry{URL: seed.String(), Depth: 0})
	if req.UseSitemap && req.MaxDepth >= 1 {
		c.seedFromSitemap(ctx, frontier, seed.String(), logger)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	workCh := make(chan Entry)
	resultCh := make(chan fetchResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.runWorkers(ctx, concurrency, workCh, resultCh)
	}()

	var result Result
	var crawlErr error
	inFlight := 0
	var next *Entry

coordinatorLoop:
	for {
		if err := ctx.Err(); err != nil {
			crawlErr = err
			break
		}

		canDispatch := result.Pages+inFlight < req.MaxPages
		if next == nil && canDispatch {
			if e, ok := frontier.Pop(); ok {
				next = &e
			}
		}
		if inFlight == 0 && (next == nil || !canDispatch) {
			break
		}

		// A nil channel disables the dispatch case.
		var work chan<- Entry
		var entry Entry
		if next != nil && canDispatch {
			work = workCh
			entry = *next
		}

		select {
		case <-ctx.Done():
			crawlErr = ctx.Err()
			break coordinatorLoop
		case work <- entry:
			result.Visited = append(result.Visited, entry.URL)
			inFlight++
			next = nil
		case res := <-resultCh:
			inFlight--
			if err := c.handleResult(ctx, res, req, frontier, seed, &result, onPage); err != nil {
				crawlErr = err
				break coordinatorLoop
			}
		}
	}

	cancel()
	close(workCh)
	c.drain(resultCh, done)

	if crawlErr == nil && result.Pages == 0 && result.Failed > 0 {
		crawlErr = fmt.Errorf("%w: all %d fetches failed", ErrTooManyFailures, result.Failed)
	}
	logger.Info("crawl finished",
		"seed", seed.String(),
		"pages", result.Pages,
		"failed", result.Failed,
		"disallowed", result.Disallowed,
		"unvisited", frontier.Len(),
		"err", crawlErr,
	)
	return &result, crawlErr
}

// handleResult records a worker result. It is only called by the coordinator.
func (c *Crawler) handleResult(
	ctx context.Context,
	res fetchResult,
	req sitechat.CrawlRequest,
	frontier *Frontier,
	seed *url.URL,
	result *Result,
	onPage PageFunc,
) error {
	switch {
	case res.disallowed:
		result.Disallowed++
		return nil
	case res.err != nil:
		result.Failed++
		c.logger().Warn("fetch failed", "url", res.entry.URL, "err", res.err)
		if c.tooManyFailures(result) {
			return fmt.Errorf("%w: %d of %d fetches failed", ErrTooManyFailures, result.Failed, result.Attempts())
		}
		return nil
	}

	page := res.page
	page.URL = res.entry.URL
	page.Depth = res.entry.Depth
	result.Pages++
	result.Bytes += len(page.Text)

	if err := onPage(ctx, page); err != nil {
		return err
	}

	if page.Depth >= req.MaxDepth {
		return nil
	}
	c.enqueueLinks(frontier, seed, page)
	return nil
}

func (c *Crawler) enqueueLinks(frontier *Frontier, seed *url.URL, page *sitechat.Page) {
	filter := c.filter()
	added := 0
	for _, link := range page.Links {
		if c.MaxLinksPerPage > 0 && added >= c.MaxLinksPerPage {
			return
		}
		u, ok := normalizeLink(link, c.KeepQuery)
		if !ok || !c.Scope.contains(seed, u) {
			continue
		}
		s := u.String()
		if !filter.Match(s) {
			continue
		}
		if frontier.Push(Entry{URL: s, Depth: page.Depth + 1}) {
			added++
		}
	}
}

func (c *Crawler) seedFromSitemap(ctx context.Context, frontier *Frontier, seed string, logger *slog.Logger) {
	if c.Sitemaps == nil {
		return
	}
	begin := time.Now()
	urls, err := c.Sitemaps.DiscoverURLs(ctx, seed, c.filter())
	if err != nil {
		logger.Warn("sitemap discovery failed", "seed", seed, "duration", time.Since(begin), "err", err)
		return
	}
	seedURL, _ := normalizeLink(seed, true)
	outOfScope := 0
	for _, raw := range urls {
		u, ok := normalizeLink(raw, c.KeepQuery)
		if !ok || !c.Scope.contains(seedURL, u) {
			outOfScope++
			continue
		}
		frontier.Push(Entry{URL: u.String(), Depth: 1})
	}
	logger.Info("sitemap seeded",
		"seed", seed,
		"discovered", len(urls),
		"out_of_scope", outOfScope,
		"queued", frontier.Len(),
		"duration", time.Since(begin),
	)
}

func (c *Crawler) tooManyFailures(r *Result) bool {
	minAttempts := c.MinAttempts
	if minAttempts <= 0 {
		minAttempts = DefaultMinAttempts
	}
	ratio := c.MaxFailureRatio
	if ratio <= 0 {
		ratio = DefaultMaxFailureRatio
	}
	attempts := r.Attempts()
	return attempts >= minAttempts && float64(r.Failed)/float64(attempts) > ratio
}

// drain discards results of fetches still in flight after the coordinator
// stopped, waiting at most drainTimeout for the workers to exit.
func (c *Crawler) drain(resultCh <-chan fetchResult, done <-chan struct{}) {
	timeout := time.After(drainTimeout)
	for {
		select {
		case <-resultCh:
		case <-done:
			return
		case <-timeout:
			c.logger().Warn("crawl workers did not stop in time")
			return
		}
	}
}

func (c *Crawler) filter() *sitechat.URLFilter {
	if c.Filter != nil {
		return c.Filter
	}
	return DefaultFilter()
}

func (c *Crawler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}
