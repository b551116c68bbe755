package handler

import (
	"context"
	"csbot/internal/adapters/sender"
	"csbot/internal/core/domain"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

type CallbackAnswerer interface {
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Telegram turns bot updates into dispatcher messages and navigation events.
type Telegram struct {
	dispatcher Dispatcher
	navigator  Navigator
	answerer   CallbackAnswerer
}

func NewTelegram(dispatcher Dispatcher, navigator Navigator, answerer CallbackAnswerer) *Telegram {
	return &Telegram{dispatcher: dispatcher, navigator: navigator, answerer: answerer}
}

// HandleMessage dispatches text messages and photo captions. Each message is handled in its own goroutine so a slow
// command does not hold up the update loop.
func (h *Telegram) HandleMessage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := telegramMessage(update)
	if msg == nil {
		return
	}

	log.Debug().Str("message", msg.Text).Str("chatId", msg.Chat.ID).Msg("received message")

	go h.dispatcher.Handle(ctx, msg)
}

func (h *Telegram) HandleCallback(ctx context.Context, _ *bot.Bot, update *models.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	defer func() {
		_, err := h.answerer.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})
		if err != nil {
			log.Warn().Err(err).Msg("failed to answer callback query")
		}
	}()

	payload, ok := strings.CutPrefix(cq.Data, sender.CallbackPrefix)
	if !ok {
		return
	}

	direction, ok := domain.ParseDirection(payload)
	if !ok {
		log.Debug().Str("data", cq.Data).Msg("unknown navigation payload")
		return
	}

	ref, ok := callbackMessage(cq)
	if !ok {
		return
	}

	navigate(ctx, h.navigator, domain.NavigationEvent{
		Message:   ref,
		Actor:     domain.Actor{ID: strconv.FormatInt(cq.From.ID, 10), Name: getUserNameFromMessage(&cq.From)},
		Direction: direction,
	})
}

func telegramMessage(update *models.Update) *domain.Message {
	m := update.Message
	if m == nil || m.From == nil || m.From.IsBot {
		return nil
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}
	if text == "" {
		return nil
	}

	chat := domain.Chat{ID: strconv.FormatInt(m.Chat.ID, 10), Kind: domain.Direct}
	if m.Chat.Type != models.ChatTypePrivate {
		chat.Kind = domain.Group
		chat.GuildID = chat.ID
	}

	return &domain.Message{
		ID:   strconv.Itoa(m.ID),
		Chat: chat,
		Author: domain.Actor{
			ID:   strconv.FormatInt(m.From.ID, 10),
			Name: getUserNameFromMessage(m.From),
		},
		Text: text,
	}
}

func callbackMessage(cq *models.CallbackQuery) (domain.MessageRef, bool) {
	switch {
	case cq.Message.Message != nil:
		m := cq.Message.Message
		return domain.MessageRef{ChatID: strconv.FormatInt(m.Chat.ID, 10), MessageID: strconv.Itoa(m.ID)}, true
	case cq.Message.InaccessibleMessage != nil:
		m := cq.Message.InaccessibleMessage
		return domain.MessageRef{ChatID: strconv.FormatInt(m.Chat.ID, 10), MessageID: strconv.Itoa(m.MessageID)}, true
	default:
		return domain.MessageRef{}, false
	}
}

func getUserNameFromMessage(user *models.User) string {
	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
