package crawl

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitechat"
)

var _ sitechat.PageFetcher = (*PageLoader)(nil)

// PageLoader implements sitechat.PageFetcher by fetching HTML, collecting
// its links, extracting the main content and converting it to Markdown.
type PageLoader struct {
	Fetcher   sitechat.Fetcher
	Links     sitechat.LinkExtractor
	Extractor sitechat.Extractor
	Converter sitechat.Converter
}

// FetchPage loads a single page. Link extraction failures are tolerated so
// that a page with unparsable navigation still contributes its text.
func (l *PageLoader) FetchPage(ctx context.Context, url string) (*sitechat.Page, error) {
	html, err := l.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	page := &sitechat.Page{URL: url}
	if links, err := l.Links.ExtractLinks(html, url); err == nil {
		page.Links = links
	}

	extracted, err := l.Extractor.Extract(html)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", url, err)
	}
	page.Title = extracted.Title

	if strings.TrimSpace(extracted.ContentHTML) != "" {
		markdown, err := l.Converter.Convert(extracted.ContentHTML)
		if err != nil {
			return nil, fmt.Errorf("convert %s: %w", url, err)
		}
		page.Text = markdown
	}
	page.Hash = ComputeHash(page.Text)

	return page, nil
}

// ComputeHash computes a hash of the content using xxhash.
func ComputeHash(content string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(content))
}
