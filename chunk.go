package sitechat

import (
	"context"
	"iter"
)

// Default chunking parameters, measured in characters (Unicode code points).
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunk represents a contiguous window of a page's extracted text, the unit
// of embedding and retrieval.
type Chunk struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	SourceURL string    `json:"sourceUrl"`
	Title     string    `json:"title"`
	Sequence  int       `json:"sequence"`
	Offset    int       `json:"offset"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.SourceURL == "" {
		return Errorf(EINVALID, "chunk source URL required")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	if len(c.Embedding) == 0 {
		return Errorf(EINVALID, "chunk embedding required")
	}
	return nil
}

// ChunkText splits text into overlapping windows of at most size characters.
// Consecutive windows start size-overlap characters apart and the final
// window may be shorter. Empty text yields no chunks; text of at most size
// characters yields exactly one.
//
// The returned sequence fills Sequence, Offset and Content only. It may be
// ranged over any number of times and always yields the same chunks.
func ChunkText(text string, size, overlap int) (iter.Seq[Chunk], error) {
	if size <= 0 {
		return nil, Errorf(EINVALID, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, Errorf(EINVALID, "chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	runes := []rune(text)
	step := size - overlap

	return func(yield func(Chunk) bool) {
		n := len(runes)
		for seq, start := 0, 0; start < n; seq, start = seq+1, start+step {
			end := min(start+size, n)
			if !yield(Chunk{Sequence: seq, Offset: start, Content: string(runes[start:end])}) {
				return
			}
			if end == n {
				return
			}
		}
	}, nil
}

// ChunkIndex stores embedded chunks and answers nearest-neighbour queries.
type ChunkIndex interface {
	// AddChunks stores chunks, all of which must carry an embedding.
	AddChunks(ctx context.Context, chunks []*Chunk) error

	// Query returns up to k chunks ranked by cosine similarity to embedding,
	// most similar first. Equal scores keep insertion order.
	Query(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)

	// DeleteChunks removes chunks matching the filter and reports how many
	// were removed. An empty filter matches nothing.
	DeleteChunks(ctx context.Context, filter ChunkFilter) (int, error)

	// Clear removes every chunk.
	Clear(ctx context.Context) error

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// ChunkFilter selects chunks for deletion.
type ChunkFilter struct {
	JobID     *string `json:"jobId"`
	SourceURL *string `json:"sourceUrl"`
}

// SearchResult represents a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float32 `json:"score"`
}
