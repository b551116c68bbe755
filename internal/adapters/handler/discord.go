package handler

import (
	"context"
	"csbot/internal/core/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type ReactionRemover interface {
	RemoveReaction(ctx context.Context, ref domain.MessageRef, emoji, userID string) error
}

// DirectionOf maps a reaction emoji to a navigation direction.
type DirectionOf func(emoji string) (domain.Direction, bool)

// Discord turns gateway events into dispatcher messages and navigation events.
type Discord struct {
	ctx        context.Context
	dispatcher Dispatcher
	navigator  Navigator
	remover    ReactionRemover
	direction  DirectionOf
}

// NewDiscord binds the handlers to ctx, discordgo event callbacks carry no context of their own.
func NewDiscord(ctx context.Context, dispatcher Dispatcher, navigator Navigator, remover ReactionRemover,
	direction DirectionOf) *Discord {
	return &Discord{ctx: ctx, dispatcher: dispatcher, navigator: navigator, remover: remover, direction: direction}
}

func (h *Discord) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg := discordMessage(selfID(s), m)
	if msg == nil {
		return
	}

	log.Debug().Str("message", msg.Text).Str("chatId", msg.Chat.ID).Msg("received message")

	h.dispatcher.Handle(h.ctx, msg)
}

func (h *Discord) OnMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil || r.UserID == selfID(s) {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	direction, ok := h.direction(r.Emoji.Name)
	if !ok {
		return
	}

	ref := domain.MessageRef{ChatID: r.ChannelID, MessageID: r.MessageID}

	accepted := navigate(h.ctx, h.navigator, domain.NavigationEvent{
		Message:   ref,
		Actor:     domain.Actor{ID: r.UserID},
		Direction: direction,
	})
	if !accepted {
		return
	}

	if err := h.remover.RemoveReaction(h.ctx, ref, r.Emoji.Name, r.UserID); err != nil {
		log.Debug().Err(err).Msg("failed to remove navigation reaction")
	}
}

func discordMessage(self string, m *discordgo.MessageCreate) *domain.Message {
	if m.Message == nil || m.Author == nil || m.Author.Bot || m.Author.ID == self || m.Content == "" {
		return nil
	}

	chat := domain.Chat{ID: m.ChannelID, Kind: domain.Direct}
	if m.GuildID != "" {
		chat.Kind = domain.Group
		chat.GuildID = m.GuildID
	}

	return &domain.Message{
		ID:     m.ID,
		Chat:   chat,
		Author: domain.Actor{ID: m.Author.ID, Name: m.Author.Username},
		Text:   m.Content,
	}
}

func selfID(s *discordgo.Session) string {
	if s == nil || s.State == nil || s.State.User == nil {
		return ""
	}

	return s.State.User.ID
}
