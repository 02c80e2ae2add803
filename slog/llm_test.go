package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/sitechat"
	"github.com/fwojciec/sitechat/mock"
	sitechatslog "github.com/fwojciec/sitechat/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingEmbedder_Embed(t *testing.T) {
	t.Parallel()

	t.Run("logs model and dimensions", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
				return []float32{0.1, 0.2, 0.3}, nil
			},
			ModelFn: func() string { return "test-embed" },
		}

		embedder := sitechatslog.NewLoggingEmbedder(inner, logger)
		vec, err := embedder.Embed(context.Background(), "hello")

		require.NoError(t, err)
		assert.Len(t, vec, 3)
		assert.Equal(t, "test-embed", embedder.Model())
		output := buf.String()
		assert.Contains(t, output, "msg=embed")
		assert.Contains(t, output, "model=test-embed")
		assert.Contains(t, output, "chars=5")
		assert.Contains(t, output, "dims=3")
	})

	t.Run("logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner := &mock.Embedder{
			EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
				return nil, errors.New("quota exceeded")
			},
			ModelFn: func() string { return "test-embed" },
		}

		_, err := sitechatslog.NewLoggingEmbedder(inner, logger).Embed(context.Background(), "hello")

		require.Error(t, err)
		assert.Contains(t, buf.String(), `err="quota exceeded"`)
	})
}

func TestLoggingGenerator_Generate(t *testing.T) {
	t.Parallel()

	t.Run("logs prompt shape and response size", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Generator{
			GenerateFn: func(ctx context.Context, prompt *sitechat.Prompt) (string, error) {
				return "Plans start at $9.", nil
			},
			ModelFn: func() string { return "test-gen" },
		}

		generator := sitechatslog.NewLoggingGenerator(inner, logger)
		response, err := generator.Generate(context.Background(), &sitechat.Prompt{
			Context:  []sitechat.SearchResult{{Chunk: &sitechat.Chunk{Content: "a"}}, {Chunk: &sitechat.Chunk{Content: "b"}}},
			History:  []*sitechat.ChatMessage{{Role: sitechat.RoleUser, Content: "hi"}},
			Question: "How much?",
		})

		require.NoError(t, err)
		assert.Equal(t, "Plans start at $9.", response)
		assert.Equal(t, "test-gen", generator.Model())
		output := buf.String()
		assert.Contains(t, output, "msg=generate")
		assert.Contains(t, output, "model=test-gen")
		assert.Contains(t, output, "context=2")
		assert.Contains(t, output, "history=1")
		assert.Contains(t, output, "chars=18")
	})

	t.Run("logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Generator{
			GenerateFn: func(ctx context.Context, prompt *sitechat.Prompt) (string, error) {
				return "", errors.New("overloaded")
			},
			ModelFn: func() string { return "test-gen" },
		}

		_, err := sitechatslog.NewLoggingGenerator(inner, logger).Generate(context.Background(), &sitechat.Prompt{Question: "q"})

		require.Error(t, err)
		assert.Contains(t, buf.String(), "err=overloaded")
	})
}
