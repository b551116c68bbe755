package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type userMessenger interface {
	UserMessage() string
}

func RSS(feeds FeedManager) command.Command {
	return command.Command{
		Name:        "rss",
		Category:    CategoryGuild,
		Help:        "Perform actions related to RSS feeds.\nAvailable actions are `add, remove, list, check`.",
		Usage:       "rss <add <url>|remove <n>|list|check>",
		GuildOnly:   true,
		Permissions: domain.PermManageGuild,
		Handler: func(ctx context.Context, c *command.Context) error {
			args := command.ParseArgs(c.Args)

			var action, arg string
			if len(args) > 0 {
				action = strings.ToLower(args[0])
			}
			if len(args) > 1 {
				arg = args[1]
			}

			guildID, channelID := c.Message.Chat.GuildID, c.Message.Chat.ID

			switch action {
			case "add":
				return rssAdd(ctx, c, feeds, arg)
			case "list":
				list, err := feeds.List(ctx, guildID, channelID)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					return feedReply(ctx, c, "None for this channel.")
				}

				urls := make([]string, len(list))
				for i, f := range list {
					urls[i] = f.URL
				}

				return c.Paginate(ctx, urls, listRenderer(domain.FeedTitle, c.Message.Author.Name), 0)
			case "remove":
				choice, err := strconv.Atoi(arg)
				if err != nil {
					return feedReply(ctx, c, "Invalid choice.")
				}

				feed, err := feeds.Remove(ctx, guildID, channelID, choice)
				if errors.Is(err, domain.ErrInvalidChoice) {
					return feedReply(ctx, c,
						"Invalid choice. Use `list` to see all feeds and their ID for this channel.")
				}
				if err != nil {
					return err
				}

				return feedReply(ctx, c, fmt.Sprintf("This channel is no longer listening to `%s`.", feed.URL))
			case "check":
				return rssCheck(ctx, c, feeds)
			default:
				return feedReply(ctx, c, "Invalid action.")
			}
		},
	}
}

func rssAdd(ctx context.Context, c *command.Context, feeds FeedManager, url string) error {
	_, err := feeds.Add(ctx, url, c.Message.Chat.GuildID, c.Message.Chat.ID)

	var removed userMessenger
	switch {
	case err == nil:
		return feedReply(ctx, c, fmt.Sprintf("This channel is now listening to `%s`.", url))
	case errors.Is(err, domain.ErrFeedExists):
		return feedReply(ctx, c, fmt.Sprintf("This channel is already listening to `%s`!", url))
	case errors.As(err, &removed):
		return feedReply(ctx, c, removed.UserMessage())
	case errors.Is(err, domain.ErrInvalidFeedURL):
		return feedReply(ctx, c, "URL needs to begin with `http://` or `https://`.")
	default:
		return err
	}
}

func rssCheck(ctx context.Context, c *command.Context, feeds FeedManager) error {
	n, err := feeds.CheckChannel(ctx, c.Message.Chat.GuildID, c.Message.Chat.ID)
	if n == 0 && err == nil {
		return feedReply(ctx, c, "No feeds to check for this channel!")
	}

	for _, e := range flatten(err) {
		var removed userMessenger
		if errors.As(e, &removed) {
			if err := feedReply(ctx, c, removed.UserMessage()); err != nil {
				return err
			}
			continue
		}

		log.Warn().Err(e).Str("channelId", c.Message.Chat.ID).Msg("feed check failed")
	}

	return feedReply(ctx, c, "Checked all RSS feeds for this channel.")
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}

	return []error{err}
}

func feedReply(ctx context.Context, c *command.Context, text string) error {
	_, err := c.Send(ctx, domain.Content{Title: domain.FeedTitle, Description: text})
	return err
}
