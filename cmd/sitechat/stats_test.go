package main_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/sitechat"
	main "github.com/fwojciec/sitechat/cmd/sitechat"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("prints knowledge base statistics", func(t *testing.T) {
		t.Parallel()

		chat := &mock.ChatService{
			StatsFn: func(_ context.Context) (*sitechat.Stats, error) {
				return &sitechat.Stats{TotalDocuments: 42, Model: "gemini-2.5-flash", EmbeddingModel: "gemini-embedding-001", TopK: 5}, nil
			},
		}

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Chat: chat}

		err := (&main.StatsCmd{}).Run(deps)
		require.NoError(t, err)

		output := stdout.String()
		assert.Contains(t, output, "Chunks:          42")
		assert.Contains(t, output, "gemini-2.5-flash")
		assert.Contains(t, output, "gemini-embedding-001")
		assert.Contains(t, output, "Top K:           5")
	})

	t.Run("reports errors", func(t *testing.T) {
		t.Parallel()

		chat := &mock.ChatService{
			StatsFn: func(_ context.Context) (*sitechat.Stats, error) {
				return nil, errors.New("no such table: chunks")
			},
		}

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Chat: chat}

		err := (&main.StatsCmd{}).Run(deps)
		require.Error(t, err)
		assert.Equal(t, "error: Internal error.\n", stderr.String())
	})
}
