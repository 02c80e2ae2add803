package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex is a mock implementation of sitechat.ChunkIndex.
type ChunkIndex struct {
	AddChunksFn    func(ctx context.Context, chunks []*sitechat.Chunk) error
	QueryFn        func(ctx context.Context, embedding []float32, k int) ([]sitechat.SearchResult, error)
	DeleteChunksFn func(ctx context.Context, filter sitechat.ChunkFilter) (int, error)
	ClearFn        func(ctx context.Context) error
	CountChunksFn  func(ctx context.Context) (int, error)
}

func (i *ChunkIndex) AddChunks(ctx context.Context, chunks []*sitechat.Chunk) error {
	return i.AddChunksFn(ctx, chunks)
}

func (i *ChunkIndex) Query(ctx context.Context, embedding []float32, k int) ([]sitechat.SearchResult, error) {
	return i.QueryFn(ctx, embedding, k)
}

func (i *ChunkIndex) DeleteChunks(ctx context.Context, filter sitechat.ChunkFilter) (int, error) {
	return i.DeleteChunksFn(ctx, filter)
}

func (i *ChunkIndex) Clear(ctx context.Context) error {
	return i.ClearFn(ctx)
}

func (i *ChunkIndex) CountChunks(ctx context.Context) (int, error) {
	return i.CountChunksFn(ctx)
}
