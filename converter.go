package sitechat

// Converter converts clean HTML, typically from an Extractor, to Markdown.
type Converter interface {
	Convert(html string) (string, error)
}
