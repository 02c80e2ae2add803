package main

import (
	"fmt"

	"github.com/fwojciec/sitechat"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	answer, err := deps.Chat.Answer(deps.Ctx, sitechat.AnswerRequest{
		Message:   c.Message,
		SessionID: c.Session,
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitechat.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, answer.Response)

	if len(answer.Sources) > 0 {
		fmt.Fprintln(deps.Stdout)
		fmt.Fprintln(deps.Stdout, "Sources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(deps.Stdout, "  - %s (%s)\n", s.Title, s.URL)
		}
	}

	fmt.Fprintf(deps.Stderr, "session: %s\n", answer.SessionID)
	return nil
}
