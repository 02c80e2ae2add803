package sitechat

// ExtractResult holds the main content of an HTML page.
type ExtractResult struct {
	Title string

	// ContentHTML is the main content with navigation, headers, footers,
	// sidebars, scripts and styles removed.
	ContentHTML string
}

// Extractor extracts main content from HTML pages, removing boilerplate.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}
