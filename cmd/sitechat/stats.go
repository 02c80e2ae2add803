package main

import (
	"fmt"

	"github.com/fwojciec/sitechat"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Chat.Stats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Chunks:          %d\n", stats.TotalDocuments)
	fmt.Fprintf(deps.Stdout, "Model:           %s\n", stats.Model)
	fmt.Fprintf(deps.Stdout, "Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(deps.Stdout, "Top K:           %d\n", stats.TopK)
	return nil
}
