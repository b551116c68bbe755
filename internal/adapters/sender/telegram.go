package sender

import (
	"context"
	"csbot/internal/core/domain"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// CallbackPrefix starts the callback data of every navigation button.
const CallbackPrefix = "page:"

//go:generate mockery --name TelegramBot

type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

type TelegramSender struct {
	bot TelegramBot

	// Telegram drops the inline keyboard on every text edit that does not repeat it, so the messages currently
	// showing controls are tracked here.
	mutex    sync.Mutex
	controls map[domain.MessageRef]struct{}
}

func NewTelegramSender(b TelegramBot) *TelegramSender {
	return &TelegramSender{bot: b, controls: make(map[domain.MessageRef]struct{})}
}

func (s *TelegramSender) SendMessage(ctx context.Context, chat domain.Chat,
	content domain.Content) (domain.MessageRef, error) {
	chatID, err := strconv.ParseInt(chat.ID, 10, 64)
	if err != nil {
		return domain.MessageRef{}, fmt.Errorf("invalid telegram chat id %q: %w", chat.ID, err)
	}

	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      formatTelegram(content),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return domain.MessageRef{}, err
	}

	return domain.MessageRef{ChatID: chat.ID, MessageID: strconv.Itoa(msg.ID)}, nil
}

func (s *TelegramSender) EditMessage(ctx context.Context, ref domain.MessageRef, content domain.Content) error {
	chatID, messageID, err := telegramIDs(ref)
	if err != nil {
		return err
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      formatTelegram(content),
		ParseMode: models.ParseModeHTML,
	}
	if s.hasControls(ref) {
		params.ReplyMarkup = navigationKeyboard()
	}

	_, err = s.bot.EditMessageText(ctx, params)
	return err
}

func (s *TelegramSender) AttachControls(ctx context.Context, ref domain.MessageRef) error {
	chatID, messageID, err := telegramIDs(ref)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.controls[ref] = struct{}{}
	s.mutex.Unlock()

	_, err = s.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: navigationKeyboard(),
	})

	return err
}

func (s *TelegramSender) DetachControls(ctx context.Context, ref domain.MessageRef) error {
	chatID, messageID, err := telegramIDs(ref)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	delete(s.controls, ref)
	s.mutex.Unlock()

	_, err = s.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})

	return err
}

func (s *TelegramSender) hasControls(ref domain.MessageRef) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.controls[ref]
	return ok
}

// PermissionsIn maps the admin rights of a chat member onto domain permissions.
func (s *TelegramSender) PermissionsIn(ctx context.Context, actor domain.Actor,
	chat domain.Chat) (domain.Permission, error) {
	chatID, err := strconv.ParseInt(chat.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chat.ID, err)
	}
	userID, err := strconv.ParseInt(actor.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram user id %q: %w", actor.ID, err)
	}

	member, err := s.bot.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: userID})
	if err != nil {
		return 0, err
	}

	perms := telegramPermissions(member)
	log.Trace().Str("actorId", actor.ID).Str("type", string(member.Type)).Stringer("permissions", perms).
		Msg("resolved telegram member")

	return perms, nil
}

func telegramPermissions(member *models.ChatMember) domain.Permission {
	switch member.Type {
	case models.ChatMemberTypeOwner:
		return domain.PermAll
	case models.ChatMemberTypeAdministrator:
	default:
		return 0
	}

	admin := member.Administrator
	if admin == nil {
		return 0
	}

	perms := domain.PermMentionEveryone
	if admin.CanChangeInfo {
		perms |= domain.PermManageGuild
	}
	if admin.CanDeleteMessages {
		perms |= domain.PermManageMessages
	}
	if admin.CanRestrictMembers {
		perms |= domain.PermKickMembers | domain.PermBanMembers | domain.PermModerateMembers
	}
	if admin.CanPromoteMembers {
		perms |= domain.PermManageRoles
	}
	if admin.CanInviteUsers {
		perms |= domain.PermInviteMembers
	}
	if admin.CanPinMessages {
		perms |= domain.PermPinMessages
	}
	if admin.CanManageTopics {
		perms |= domain.PermManageChannels
	}

	return perms
}

func navigationKeyboard() *models.InlineKeyboardMarkup {
	buttons := []struct {
		label string
		dir   domain.Direction
	}{
		{"⏮", domain.First},
		{"◀", domain.Prev},
		{"▶", domain.Next},
		{"⏭", domain.Last},
	}

	row := make([]models.InlineKeyboardButton, len(buttons))
	for i, b := range buttons {
		row[i] = models.InlineKeyboardButton{Text: b.label, CallbackData: CallbackPrefix + b.dir.String()}
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// telegramDescriptionLimit leaves room for the title, footer and escaping within the 4096 character message limit.
const telegramDescriptionLimit = 3500

// formatTelegram renders content as Telegram HTML.
func formatTelegram(c domain.Content) string {
	var parts []string

	if c.Title != "" {
		title := "<b>" + html.EscapeString(c.Title) + "</b>"
		if c.URL != "" {
			title = `<a href="` + html.EscapeString(c.URL) + `">` + title + "</a>"
		}
		parts = append(parts, title)
	}
	if c.Author != "" {
		parts = append(parts, "<i>"+html.EscapeString(c.Author)+"</i>")
	}

	if c.Description != "" {
		parts = append(parts, html.EscapeString(domain.TruncateTo(c.Description, telegramDescriptionLimit)))
	}
	if c.Footer != "" {
		parts = append(parts, "<i>"+html.EscapeString(c.Footer)+"</i>")
	}

	return strings.Join(parts, "\n\n")
}

func telegramIDs(ref domain.MessageRef) (int64, int, error) {
	chatID, err := strconv.ParseInt(ref.ChatID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram chat id %q: %w", ref.ChatID, err)
	}

	messageID, err := strconv.Atoi(ref.MessageID)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid telegram message id %q: %w", ref.MessageID, err)
	}

	return chatID, messageID, nil
}
