package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"csbot/internal/core/port"
)

const (
	CategoryBot    = "bot"
	CategorySounds = "sounds"
	CategoryGuild  = "guild"
	CategoryBase   = "base"
)

// FeedManager is the part of the feed service the rss command drives.
type FeedManager interface {
	Add(ctx context.Context, url, guildID, channelID string) (domain.Feed, error)
	List(ctx context.Context, guildID, channelID string) ([]domain.Feed, error)
	Remove(ctx context.Context, guildID, channelID string, choice int) (domain.Feed, error)
	CheckChannel(ctx context.Context, guildID, channelID string) (int, error)
}

// Deps holds the collaborators of the built-in commands. Sounds, Feeds and Generator are optional; the commands
// depending on them are left out when they are nil.
type Deps struct {
	Registry  *command.Registry
	Sounds    port.SoundIndex
	Feeds     FeedManager
	Generator port.TextGenerator
	Shell     Shell
	// Exit terminates the process after update, os.Exit when nil.
	Exit func(code int)
}

// DefineCategories sets the display names of the built-in categories.
func DefineCategories(r *command.Registry) {
	r.DefineCategory(CategoryBot, "Bot")
	r.DefineCategory(CategorySounds, "Chatsounds")
	r.DefineCategory(CategoryGuild, "Server")
	r.DefineCategory(CategoryBase, "Owner")
}

// All returns every built-in command that can be served with deps.
func All(deps Deps) []command.Command {
	cmds := []command.Command{
		Ping(),
		Help(deps.Registry),
		List(deps.Registry),
	}

	if deps.Sounds != nil {
		cmds = append(cmds, Search(deps.Sounds), Play(deps.Sounds))
	}

	if deps.Feeds != nil {
		cmds = append(cmds, RSS(deps.Feeds))
	}

	if deps.Generator != nil {
		cmds = append(cmds, Ask(deps.Generator))
	}

	base := NewBase(deps.Shell, deps.Exit)
	cmds = append(cmds, Debug(), base.Exec(), base.Update())

	return cmds
}
