package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of sitechat.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
	ModelFn func() string
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedFn(ctx, text)
}

func (e *Embedder) Model() string {
	return e.ModelFn()
}

var _ sitechat.Generator = (*Generator)(nil)

// Generator is a mock implementation of sitechat.Generator.
type Generator struct {
	GenerateFn func(ctx context.Context, prompt *sitechat.Prompt) (string, error)
	ModelFn    func() string
}

func (g *Generator) Generate(ctx context.Context, prompt *sitechat.Prompt) (string, error) {
	return g.GenerateFn(ctx, prompt)
}

func (g *Generator) Model() string {
	return g.ModelFn()
}
