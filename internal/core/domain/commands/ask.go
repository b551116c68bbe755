package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"csbot/internal/core/port"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

func Ask(generator port.TextGenerator) command.Command {
	return command.Command{
		Name:     "ask",
		Aliases:  []string{"chat"},
		Category: CategoryBot,
		Help:     "Asks the language model a single question.",
		Usage:    "ask <prompt>",
		Handler: func(ctx context.Context, c *command.Context) error {
			prompt := strings.TrimSpace(c.Args)
			if prompt == "" {
				return c.Reply(ctx, "usage: "+c.Command.Usage)
			}

			l := log.With().
				Str("messageId", c.Message.ID).
				Str("chatId", c.Message.Chat.ID).
				Logger()

			response, err := generator.GenerateFromPrompt(ctx, []domain.Prompt{
				{Author: domain.User, Prompt: prompt},
			})
			if err != nil {
				l.Error().Err(err).Msg("failed to generate reply")
				return c.Reply(ctx, fmt.Sprintf("failed to generate reply: %s", err))
			}

			l.Debug().
				Str("model", response.Metadata.Model).
				Int("totalTokens", response.Metadata.TotalTokens).
				Msg("reply generated")

			return c.Reply(ctx, response.Response)
		},
	}
}
