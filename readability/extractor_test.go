package readability_test

import (
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/readability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// page wraps body in a minimal document titled title.
func page(title, body string) string {
	return `<!DOCTYPE html>
<html>
<head><title>` + title + `</title></head>
<body>
` + body + `
</body>
</html>`
}

func TestExtractor_RejectsBlankInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "  \n\t "} {
		_, err := readability.NewExtractor().Extract(input)

		require.Error(t, err)
		assert.Equal(t, sitechat.EINVALID, sitechat.ErrorCode(err))
	}
}

func TestExtractor_Title(t *testing.T) {
	t.Parallel()

	t.Run("uses document title", func(t *testing.T) {
		t.Parallel()

		result, err := readability.NewExtractor().Extract(page("Opening Hours",
			`<article><p>We are open daily.</p></article>`))

		require.NoError(t, err)
		assert.Equal(t, "Opening Hours", result.Title)
	})

	t.Run("falls back to site name", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head><meta property="og:site_name" content="Acme Widgets"></head>
<body><article><p>Acme builds durable widgets for industrial customers around the world.</p></article></body>
</html>`

		result, err := readability.NewExtractor().Extract(html)

		require.NoError(t, err)
		assert.Equal(t, "Acme Widgets", result.Title)
	})
}

func TestExtractor_DropsPageChrome(t *testing.T) {
	t.Parallel()

	const story = `<article><p>Our bakery has served the neighbourhood since 1998, baking sourdough every morning before dawn.</p></article>`

	tests := []struct {
		name   string
		chrome string
		absent string
	}{
		{
			name:   "navigation",
			chrome: `<nav><a href="/menu">Menu Nav Link</a><a href="/visit">Visit Nav Link</a></nav>`,
			absent: "Menu Nav Link",
		},
		{
			name:   "footer",
			chrome: `<footer><p>Copyright Corner Bakery 2025</p></footer>`,
			absent: "Copyright Corner Bakery",
		},
		{
			name:   "sidebar",
			chrome: `<aside class="sidebar"><p>Sidebar newsletter signup</p></aside>`,
			absent: "Sidebar newsletter signup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := readability.NewExtractor().Extract(page("About", tt.chrome+story))

			require.NoError(t, err)
			assert.Contains(t, result.ContentHTML, "baking sourdough every morning")
			assert.NotContains(t, result.ContentHTML, tt.absent)
		})
	}
}

func TestExtractor_PreservesStructure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		present []string
	}{
		{
			name: "headings",
			body: `<article>
<h1>Catering</h1>
<p>We cater weddings, offices and birthday parties across the city.</p>
<h2>Ordering</h2>
<p>Place catering orders at least three days in advance by phone or email.</p>
</article>`,
			present: []string{"Catering", "Ordering"},
		},
		{
			name: "paragraphs",
			body: `<article>
<p>Fresh bread is available from seven every morning.</p>
<p>Pastries sell out quickly on weekends, so come early.</p>
</article>`,
			present: []string{"<p>", "Fresh bread is available", "Pastries sell out"},
		},
		{
			name: "lists",
			body: `<article>
<p>Every loaf is made from three ingredients:</p>
<ul>
<li>Stone-ground flour</li>
<li>Filtered water</li>
<li>Sea salt</li>
</ul>
</article>`,
			present: []string{"<li>", "Stone-ground flour", "Sea salt"},
		},
		{
			name: "tables",
			body: `<article>
<p>Our weekly opening hours are listed below.</p>
<table>
<tr><th>Day</th><th>Hours</th></tr>
<tr><td>Monday to Friday</td><td>7am to 6pm</td></tr>
<tr><td>Saturday</td><td>8am to 4pm</td></tr>
</table>
</article>`,
			present: []string{"<table", "Monday to Friday", "8am to 4pm"},
		},
		{
			name: "links",
			body: `<article>
<p>See our <a href="https://bakery.example/menu">full menu</a> for seasonal specials.</p>
</article>`,
			present: []string{"<a", "full menu"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := readability.NewExtractor().Extract(page("Corner Bakery", tt.body))

			require.NoError(t, err)
			for _, want := range tt.present {
				assert.Contains(t, result.ContentHTML, want)
			}
		})
	}
}
