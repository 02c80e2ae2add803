package crawl

import (
	"context"
	"net/url"

	"github.com/fwojciec/sitechat"
	"golang.org/x/sync/errgroup"
)

// runWorkers fetches entries from workCh on n goroutines until workCh is
// closed, then returns once all of them have exited.
func (c *Crawler) runWorkers(ctx context.Context, n int, workCh <-chan Entry, resultCh chan<- fetchResult) {
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			for e := range workCh {
				res := c.fetch(ctx, e)
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// fetch performs one rate-limited, retried, time-bounded page fetch.
func (c *Crawler) fetch(ctx context.Context, e Entry) fetchResult {
	res := fetchResult{entry: e}

	if c.Robots != nil && !c.Robots.Allowed(ctx, e.URL) {
		res.disallowed = true
		return res
	}

	u, err := url.Parse(e.URL)
	if err != nil {
		res.err = err
		return res
	}
	if c.RateLimiter != nil {
		if err := c.RateLimiter.Wait(ctx, u.Hostname()); err != nil {
			res.err = err
			return res
		}
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	res.page, res.err = FetchWithRetry(ctx, e.URL, c.fetchOnce, c.logger(), delays)
	return res
}

func (c *Crawler) fetchOnce(ctx context.Context, url string) (*sitechat.Page, error) {
	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Pages.FetchPage(ctx, url)
}
