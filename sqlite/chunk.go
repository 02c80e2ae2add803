package sqlite

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitechat.ChunkIndex = (*ChunkIndex)(nil)

// ChunkIndex implements sitechat.ChunkIndex using SQLite.
// Embeddings are stored as little-endian float32 blobs and queries perform
// an exact cosine-similarity scan in insertion order.
type ChunkIndex struct {
	db *DB
}

// NewChunkIndex creates a new ChunkIndex.
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

// AddChunks stores chunks in a single transaction, assigning IDs to chunks
// that have none.
func (x *ChunkIndex) AddChunks(ctx context.Context, chunks []*sitechat.Chunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, job_id, source_url, title, sequence, char_offset, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.JobID, c.SourceURL, c.Title, c.Sequence, c.Offset,
			c.Content, encodeEmbedding(c.Embedding), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Query returns the k chunks most similar to embedding. Chunks whose
// embedding length differs from the query are ignored.
func (x *ChunkIndex) Query(ctx context.Context, embedding []float32, k int) ([]sitechat.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, sitechat.Errorf(sitechat.EINVALID, "query embedding required")
	}
	results := []sitechat.SearchResult{}
	if k <= 0 {
		return results, nil
	}

	rows, err := x.db.QueryContext(ctx, `
		SELECT id, job_id, source_url, title, sequence, char_offset, content, embedding
		FROM chunks
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queryNorm := norm(embedding)
	for rows.Next() {
		var c sitechat.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.JobID, &c.SourceURL, &c.Title, &c.Sequence, &c.Offset, &c.Content, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(embedding) {
			continue
		}
		results = append(results, sitechat.SearchResult{
			Chunk: &c,
			Score: cosine(embedding, queryNorm, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort keeps insertion order among equal scores.
	slices.SortStableFunc(results, func(a, b sitechat.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DeleteChunks removes chunks matching every set filter field.
func (x *ChunkIndex) DeleteChunks(ctx context.Context, filter sitechat.ChunkFilter) (int, error) {
	var query strings.Builder
	var args []any

	query.WriteString("DELETE FROM chunks WHERE 1=1")
	if filter.JobID == nil && filter.SourceURL == nil {
		return 0, nil
	}
	if filter.JobID != nil {
		query.WriteString(" AND job_id = ?")
		args = append(args, *filter.JobID)
	}
	if filter.SourceURL != nil {
		query.WriteString(" AND source_url = ?")
		args = append(args, *filter.SourceURL)
	}

	result, err := x.db.ExecContext(ctx, query.String(), args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Clear removes every chunk.
func (x *ChunkIndex) Clear(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, "DELETE FROM chunks")
	return err
}

// CountChunks returns the number of stored chunks.
func (x *ChunkIndex) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of q and v given q's norm.
// A zero vector has similarity 0 with everything.
func cosine(q []float32, qNorm float64, v []float32) float32 {
	vNorm := norm(v)
	if qNorm == 0 || vNorm == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	return float32(dot / (qNorm * vNorm))
}
