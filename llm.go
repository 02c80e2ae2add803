package sitechat

import "context"

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model name.
	Model() string
}

// Prompt is the model-independent input to a Generator.
type Prompt struct {
	// System holds the operator instructions.
	System string

	// Context holds retrieved chunks in similarity order.
	Context []SearchResult

	// History holds prior turns, oldest first.
	History []*ChatMessage

	// Question is the new user message.
	Question string
}

// Generator produces a response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt *Prompt) (string, error)

	// Model returns the generation model name.
	Model() string
}
