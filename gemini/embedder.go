package gemini

import (
	"context"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

var _ sitechat.Embedder = (*Embedder)(nil)

// Embedder implements sitechat.Embedder using the Gemini embedding API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int32
}

// NewEmbedder creates a new Embedder. An empty model selects
// DefaultEmbeddingModel; zero dimensions keeps the model's default size.
func NewEmbedder(client *genai.Client, model string, dimensions int) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: client, model: model, dimensions: int32(dimensions)}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Embed returns the embedding vector of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, sitechat.Errorf(sitechat.EINVALID, "text required")
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		e.config(),
	)
	if err != nil {
		return nil, err
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, sitechat.Errorf(sitechat.EINTERNAL, "gemini returned no embedding")
	}

	return result.Embeddings[0].Values, nil
}

func (e *Embedder) config() *genai.EmbedContentConfig {
	if e.dimensions <= 0 {
		return nil
	}
	return &genai.EmbedContentConfig{OutputDimensionality: &e.dimensions}
}
