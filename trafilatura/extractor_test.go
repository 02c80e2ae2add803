package trafilatura_test

import (
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/mock"
	"github.com/fwojciec/sitechat/trafilatura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Extractor implements sitechat.Extractor at compile time.
var _ sitechat.Extractor = (*trafilatura.Extractor)(nil)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		html    string
		present []string
		absent  []string
	}{
		{
			name: "landing page without site chrome",
			html: `<!DOCTYPE html>
<html>
<head>
<title>Northwind Dental | Family Dentistry</title>
<meta property="og:title" content="Northwind Dental">
</head>
<body>
<nav class="main-nav">
<ul>
<li><a href="/">Home</a></li>
<li><a href="/services">Services</a></li>
<li><a href="/book">Book online</a></li>
</ul>
</nav>
<main>
<h1>Gentle care for the whole family</h1>
<p>Northwind Dental has offered check-ups, cleanings and orthodontics to families in the valley for over twenty years.</p>
<h2>New patients</h2>
<p>New patients receive a full examination and X-rays at their first visit.</p>
</main>
<footer>
<p>Copyright 2025 Northwind Dental Group</p>
<nav>Privacy | Terms | Careers</nav>
</footer>
</body>
</html>`,
			present: []string{"orthodontics to families", "New patients"},
			absent:  []string{"main-nav", "Copyright 2025 Northwind Dental Group"},
		},
		{
			name: "pricing page keeps tables",
			html: `<!DOCTYPE html>
<html>
<head><title>Pricing</title></head>
<body>
<article>
<h1>Plans and pricing</h1>
<p>Every plan includes unlimited projects and email support from our team.</p>
<table>
<tr><th>Plan</th><th>Price</th></tr>
<tr><td>Starter</td><td>$9 per month</td></tr>
<tr><td>Business</td><td>$49 per month</td></tr>
</table>
</article>
<aside>Sidebar promotion</aside>
</body>
</html>`,
			present: []string{"unlimited projects", "$49 per month"},
		},
		{
			name: "help center article with sidebar",
			html: `<!DOCTYPE html>
<html>
<head><title>Returns | Help Center</title></head>
<body>
<nav class="navbar">
<a href="/">Shop</a>
<a href="/help">Help</a>
</nav>
<div class="sidebar">
<ul>
<li><a href="/help/shipping">Shipping</a></li>
<li><a href="/help/returns">Returns</a></li>
</ul>
</div>
<main>
<article>
<h1>Returning an order</h1>
<p>You can return unworn items within thirty days of delivery for a full refund.</p>
<h2>Exchanges</h2>
<p>Exchanges for a different size ship free of charge once we receive the original item.</p>
</article>
</main>
</body>
</html>`,
			present: []string{"within thirty days of delivery", "Exchanges"},
		},
		{
			name:    "minimal document",
			html:    `<html><body><p>Simple content</p></body></html>`,
			present: []string{"Simple content"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := trafilatura.NewExtractor().Extract(tt.html)

			require.NoError(t, err)
			for _, want := range tt.present {
				assert.Contains(t, result.ContentHTML, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, result.ContentHTML, unwanted)
			}
		})
	}

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		result, err := trafilatura.NewExtractor().Extract(tests[0].html)

		require.NoError(t, err)
		assert.NotEmpty(t, result.Title)
	})

	t.Run("rejects blank input", func(t *testing.T) {
		t.Parallel()

		for _, input := range []string{"", " \n "} {
			_, err := trafilatura.NewExtractor().Extract(input)

			require.Error(t, err)
			assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
		}
	})
}

func TestExtractor_Fallback(t *testing.T) {
	t.Parallel()

	t.Run("delegates when trafilatura finds no content", func(t *testing.T) {
		t.Parallel()

		called := false
		ext := trafilatura.NewExtractor()
		ext.Fallback = &mock.Extractor{
			ExtractFn: func(html string) (*sitechat.ExtractResult, error) {
				called = true
				return &sitechat.ExtractResult{Title: "Contact", ContentHTML: "<p>Call us</p>"}, nil
			},
		}

		result, err := ext.Extract(`<html><head><title>Contact</title></head><body><script>init()</script></body></html>`)

		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "<p>Call us</p>", result.ContentHTML)
	})

	t.Run("is not consulted when content is found", func(t *testing.T) {
		t.Parallel()

		ext := trafilatura.NewExtractor()
		ext.Fallback = &mock.Extractor{
			ExtractFn: func(html string) (*sitechat.ExtractResult, error) {
				t.Fatal("fallback should not be called")
				return nil, nil
			},
		}

		result, err := ext.Extract(`<html><body><article><h1>Pricing</h1><p>Our basic plan costs nine dollars per month and includes email support for every customer.</p></article></body></html>`)

		require.NoError(t, err)
		assert.Contains(t, result.ContentHTML, "nine dollars per month")
	})
}
