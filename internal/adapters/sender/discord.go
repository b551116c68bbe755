package sender

import (
	"context"
	"csbot/internal/core/domain"

	"github.com/bwmarrin/discordgo"
)

// Navigation reactions in the order they are added to a message.
const (
	ReactionFirst = "⏮"
	ReactionPrev  = "◀"
	ReactionNext  = "▶"
	ReactionLast  = "⏭"
)

var reactions = []string{ReactionFirst, ReactionPrev, ReactionNext, ReactionLast}

// ReactionDirection maps a navigation reaction back to its direction.
func ReactionDirection(emoji string) (domain.Direction, bool) {
	switch emoji {
	case ReactionFirst:
		return domain.First, true
	case ReactionPrev:
		return domain.Prev, true
	case ReactionNext:
		return domain.Next, true
	case ReactionLast:
		return domain.Last, true
	default:
		return 0, false
	}
}

const embedColor = 0x5865F2

// Embed field limits enforced by the Discord API.
const (
	embedTitleLimit       = 256
	embedDescriptionLimit = 4096
	embedFooterLimit      = 2048
	embedAuthorLimit      = 256
)

type DiscordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	MessageReactionRemove(channelID, messageID, emojiID, userID string, options ...discordgo.RequestOption) error
	MessageReactionsRemoveAll(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

type DiscordSender struct {
	session DiscordSession
}

func NewDiscordSender(session DiscordSession) *DiscordSender {
	return &DiscordSender{session: session}
}

func (s *DiscordSender) SendMessage(ctx context.Context, chat domain.Chat,
	content domain.Content) (domain.MessageRef, error) {
	msg, err := s.session.ChannelMessageSendEmbed(chat.ID, embed(content), discordgo.WithContext(ctx))
	if err != nil {
		return domain.MessageRef{}, err
	}

	return domain.MessageRef{ChatID: chat.ID, MessageID: msg.ID}, nil
}

func (s *DiscordSender) EditMessage(ctx context.Context, ref domain.MessageRef, content domain.Content) error {
	_, err := s.session.ChannelMessageEditEmbed(ref.ChatID, ref.MessageID, embed(content), discordgo.WithContext(ctx))
	return err
}

func (s *DiscordSender) AttachControls(ctx context.Context, ref domain.MessageRef) error {
	for _, r := range reactions {
		if err := s.session.MessageReactionAdd(ref.ChatID, ref.MessageID, r, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}

	return nil
}

func (s *DiscordSender) DetachControls(ctx context.Context, ref domain.MessageRef) error {
	return s.session.MessageReactionsRemoveAll(ref.ChatID, ref.MessageID, discordgo.WithContext(ctx))
}

// RemoveReaction takes back a navigation click so the same button can be pressed again.
func (s *DiscordSender) RemoveReaction(ctx context.Context, ref domain.MessageRef, emoji, userID string) error {
	return s.session.MessageReactionRemove(ref.ChatID, ref.MessageID, emoji, userID, discordgo.WithContext(ctx))
}

func (s *DiscordSender) PermissionsIn(ctx context.Context, actor domain.Actor,
	chat domain.Chat) (domain.Permission, error) {
	perms, err := s.session.UserChannelPermissions(actor.ID, chat.ID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	return discordPermissions(perms), nil
}

var discordPermissionMap = []struct {
	discord int64
	domain  domain.Permission
}{
	{discordgo.PermissionManageServer, domain.PermManageGuild},
	{discordgo.PermissionManageChannels, domain.PermManageChannels},
	{discordgo.PermissionManageMessages, domain.PermManageMessages | domain.PermPinMessages},
	{discordgo.PermissionManageRoles, domain.PermManageRoles},
	{discordgo.PermissionKickMembers, domain.PermKickMembers},
	{discordgo.PermissionBanMembers, domain.PermBanMembers},
	{discordgo.PermissionModerateMembers, domain.PermModerateMembers},
	{discordgo.PermissionMentionEveryone, domain.PermMentionEveryone},
	{discordgo.PermissionCreateInstantInvite, domain.PermInviteMembers},
}

func discordPermissions(perms int64) domain.Permission {
	if perms&discordgo.PermissionAdministrator != 0 {
		return domain.PermAll
	}

	var p domain.Permission
	for _, m := range discordPermissionMap {
		if perms&m.discord != 0 {
			p |= m.domain
		}
	}

	return p
}

func embed(c domain.Content) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       domain.Clip(c.Title, embedTitleLimit),
		URL:         c.URL,
		Description: domain.TruncateTo(c.Description, embedDescriptionLimit-len(domain.TruncateMarker)),
		Color:       embedColor,
	}

	if c.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: domain.Clip(c.Footer, embedFooterLimit)}
	}
	if c.Author != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: domain.Clip(c.Author, embedAuthorLimit)}
	}

	return e
}
