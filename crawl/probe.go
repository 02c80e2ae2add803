package crawl

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/fwojciec/sitechat"
)

// ContentDiffers compares content extracted from statically fetched HTML
// with content from browser-rendered HTML. It returns true if the rendered
// content is more than 50% longer, suggesting JavaScript adds meaningful
// content, and also on extraction errors.
func ContentDiffers(staticHTML, renderedHTML string, extractor sitechat.Extractor) bool {
	static, err := extractor.Extract(staticHTML)
	if err != nil {
		return true
	}
	rendered, err := extractor.Extract(renderedHTML)
	if err != nil {
		return true
	}

	staticLen := len(static.ContentHTML)
	renderedLen := len(rendered.ContentHTML)
	if staticLen == 0 && renderedLen > 0 {
		return true
	}
	return float64(renderedLen) > float64(staticLen)*1.5
}

var _ sitechat.Fetcher = (*AdaptiveFetcher)(nil)

// AdaptiveFetcher picks a fetcher per host. The first fetch from a host
// goes through both fetchers and keeps the rendering one only when it
// yields materially more content; later fetches from the host use the
// chosen fetcher alone. A probe where both fetchers fail decides nothing.
//
// AdaptiveFetcher is safe for concurrent use.
type AdaptiveFetcher struct {
	Static    sitechat.Fetcher
	Rendering sitechat.Fetcher
	Extractor sitechat.Extractor

	Logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]sitechat.Fetcher
}

// NewAdaptiveFetcher returns an AdaptiveFetcher choosing between static
// and rendering by comparing what extractor finds in their output.
func NewAdaptiveFetcher(static, rendering sitechat.Fetcher, extractor sitechat.Extractor) *AdaptiveFetcher {
	return &AdaptiveFetcher{
		Static:    static,
		Rendering: rendering,
		Extractor: extractor,
		hosts:     make(map[string]sitechat.Fetcher),
	}
}

// Fetch returns the HTML at rawURL from the fetcher chosen for its host.
func (a *AdaptiveFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	a.mu.Lock()
	chosen, ok := a.hosts[host]
	a.mu.Unlock()
	if ok {
		return chosen.Fetch(ctx, rawURL)
	}

	chosen, html, err := a.probe(ctx, rawURL)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	if prior, ok := a.hosts[host]; ok {
		chosen = prior
	} else {
		a.hosts[host] = chosen
		a.logger().Info("fetcher selected", "host", host, "rendering", chosen == a.Rendering)
	}
	a.mu.Unlock()

	return html, nil
}

// Chosen returns the fetcher chosen for host, or nil if none was chosen yet.
func (a *AdaptiveFetcher) Chosen(host string) sitechat.Fetcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hosts[host]
}

func (a *AdaptiveFetcher) probe(ctx context.Context, rawURL string) (sitechat.Fetcher, string, error) {
	staticHTML, staticErr := a.Static.Fetch(ctx, rawURL)
	renderedHTML, renderErr := a.Rendering.Fetch(ctx, rawURL)

	switch {
	case staticErr != nil && renderErr != nil:
		return nil, "", staticErr
	case staticErr != nil:
		return a.Rendering, renderedHTML, nil
	case renderErr != nil:
		return a.Static, staticHTML, nil
	case ContentDiffers(staticHTML, renderedHTML, a.Extractor):
		return a.Rendering, renderedHTML, nil
	}
	return a.Static, staticHTML, nil
}

// Close closes both fetchers.
func (a *AdaptiveFetcher) Close() error {
	return errors.Join(a.Static.Close(), a.Rendering.Close())
}

func (a *AdaptiveFetcher) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.DiscardHandler)
}
