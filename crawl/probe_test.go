package crawl_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/crawl"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughExtractor treats the whole input as content.
var passthroughExtractor = &mock.Extractor{
	ExtractFn: func(html string) (*sitechat.ExtractResult, error) {
		if html == "invalid" {
			return nil, errors.New("invalid html")
		}
		return &sitechat.ExtractResult{ContentHTML: html}, nil
	},
}

func TestContentDiffers(t *testing.T) {
	t.Parallel()

	t.Run("false when content is similar", func(t *testing.T) {
		t.Parallel()
		assert.False(t, crawl.ContentDiffers(strings.Repeat("a", 100), strings.Repeat("a", 120), passthroughExtractor))
	})

	t.Run("true when rendered content is much longer", func(t *testing.T) {
		t.Parallel()
		assert.True(t, crawl.ContentDiffers(strings.Repeat("a", 100), strings.Repeat("a", 200), passthroughExtractor))
	})

	t.Run("true when static content is empty", func(t *testing.T) {
		t.Parallel()
		assert.True(t, crawl.ContentDiffers("", "rendered", passthroughExtractor))
	})

	t.Run("true on extraction error", func(t *testing.T) {
		t.Parallel()
		assert.True(t, crawl.ContentDiffers("invalid", "ok", passthroughExtractor))
	})
}

// stubFetcher returns html for every URL and counts calls.
type stubFetcher struct {
	mu    sync.Mutex
	html  string
	err   error
	calls int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.html, f.err
}

func (f *stubFetcher) Close() error { return nil }

func (f *stubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestAdaptiveFetcher(t *testing.T) {
	t.Parallel()

	t.Run("keeps static fetcher when content matches", func(t *testing.T) {
		t.Parallel()

		static := &stubFetcher{html: strings.Repeat("a", 100)}
		rendering := &stubFetcher{html: strings.Repeat("a", 110)}
		f := crawl.NewAdaptiveFetcher(static, rendering, passthroughExtractor)

		html, err := f.Fetch(context.Background(), "https://example.com/")
		require.NoError(t, err)
		assert.Equal(t, static.html, html)

		_, err = f.Fetch(context.Background(), "https://example.com/pricing")
		require.NoError(t, err)

		assert.Same(t, static, f.Chosen("example.com"))
		assert.Equal(t, 2, static.Calls())
		assert.Equal(t, 1, rendering.Calls())
	})

	t.Run("switches host to rendering for JavaScript sites", func(t *testing.T) {
		t.Parallel()

		static := &stubFetcher{html: "a"}
		rendering := &stubFetcher{html: strings.Repeat("a", 100)}
		f := crawl.NewAdaptiveFetcher(static, rendering, passthroughExtractor)

		html, err := f.Fetch(context.Background(), "https://app.example.com/")
		require.NoError(t, err)
		assert.Equal(t, rendering.html, html)

		_, err = f.Fetch(context.Background(), "https://app.example.com/docs")
		require.NoError(t, err)

		assert.Same(t, rendering, f.Chosen("app.example.com"))
		assert.Equal(t, 1, static.Calls())
		assert.Equal(t, 2, rendering.Calls())
	})

	t.Run("decides per host", func(t *testing.T) {
		t.Parallel()

		static := &stubFetcher{html: strings.Repeat("a", 100)}
		rendering := &stubFetcher{html: strings.Repeat("a", 100)}
		f := crawl.NewAdaptiveFetcher(static, rendering, passthroughExtractor)

		_, err := f.Fetch(context.Background(), "https://one.example/")
		require.NoError(t, err)
		assert.Nil(t, f.Chosen("two.example"))

		_, err = f.Fetch(context.Background(), "https://two.example/")
		require.NoError(t, err)
		assert.Equal(t, 2, rendering.Calls())
	})

	t.Run("falls back when one fetcher fails", func(t *testing.T) {
		t.Parallel()

		broken := &stubFetcher{err: errors.New("boom")}
		ok := &stubFetcher{html: "<p>ok</p>"}

		f := crawl.NewAdaptiveFetcher(broken, ok, passthroughExtractor)
		html, err := f.Fetch(context.Background(), "https://example.com/")
		require.NoError(t, err)
		assert.Equal(t, "<p>ok</p>", html)
		assert.Same(t, ok, f.Chosen("example.com"))

		f = crawl.NewAdaptiveFetcher(ok, broken, passthroughExtractor)
		_, err = f.Fetch(context.Background(), "https://example.com/")
		require.NoError(t, err)
		assert.Same(t, ok, f.Chosen("example.com"))
	})

	t.Run("does not decide when both fetchers fail", func(t *testing.T) {
		t.Parallel()

		static := &stubFetcher{err: errors.New("static down")}
		rendering := &stubFetcher{err: errors.New("browser down")}
		f := crawl.NewAdaptiveFetcher(static, rendering, passthroughExtractor)

		_, err := f.Fetch(context.Background(), "https://example.com/")
		require.EqualError(t, err, "static down")
		assert.Nil(t, f.Chosen("example.com"))

		static.err = nil
		static.html = strings.Repeat("a", 100)
		_, err = f.Fetch(context.Background(), "https://example.com/")
		require.NoError(t, err)
		assert.Same(t, static, f.Chosen("example.com"))
	})
}
