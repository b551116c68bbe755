package handler

import (
	"context"
	"csbot/internal/adapters/sender"
	"csbot/internal/core/domain"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/mock"
)

type MockRemover struct {
	mock.Mock
}

func (m *MockRemover) RemoveReaction(ctx context.Context, ref domain.MessageRef, emoji, userID string) error {
	return m.Called(ctx, ref, emoji, userID).Error(0)
}

func TestDiscord_OnMessageCreate(t *testing.T) {
	tests := []struct {
		name    string
		msg     *discordgo.Message
		wantMsg *domain.Message
	}{
		{
			name: "guild message",
			msg: &discordgo.Message{ID: "m", ChannelID: "c", GuildID: "g", Content: "!ping",
				Author: &discordgo.User{ID: "u", Username: "alice"}},
			wantMsg: &domain.Message{
				ID:     "m",
				Chat:   domain.Chat{ID: "c", Kind: domain.Group, GuildID: "g"},
				Author: domain.Actor{ID: "u", Name: "alice"},
				Text:   "!ping",
			},
		},
		{
			name: "direct message",
			msg: &discordgo.Message{ID: "m", ChannelID: "dm", Content: "!ping",
				Author: &discordgo.User{ID: "u", Username: "alice"}},
			wantMsg: &domain.Message{
				ID:     "m",
				Chat:   domain.Chat{ID: "dm", Kind: domain.Direct},
				Author: domain.Actor{ID: "u", Name: "alice"},
				Text:   "!ping",
			},
		},
		{
			name: "bots are ignored",
			msg: &discordgo.Message{ID: "m", ChannelID: "c", Content: "!ping",
				Author: &discordgo.User{ID: "b", Bot: true}},
		},
		{
			name: "empty content is ignored",
			msg:  &discordgo.Message{ID: "m", ChannelID: "c", Author: &discordgo.User{ID: "u"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := new(MockDispatcher)
			if tc.wantMsg != nil {
				d.On("Handle", mock.Anything, tc.wantMsg).Once()
			}

			h := NewDiscord(t.Context(), d, new(MockNavigator), new(MockRemover), sender.ReactionDirection)
			h.OnMessageCreate(nil, &discordgo.MessageCreate{Message: tc.msg})

			d.AssertExpectations(t)
			if tc.wantMsg == nil {
				d.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestDiscord_OnMessageReactionAdd(t *testing.T) {
	ref := domain.MessageRef{ChatID: "c", MessageID: "m"}

	tests := []struct {
		name       string
		emoji      string
		navErr     error
		navigates  bool
		wantRemove bool
	}{
		{name: "navigation reaction", emoji: sender.ReactionNext, navigates: true, wantRemove: true},
		{
			name:      "stale session keeps the reaction",
			emoji:     sender.ReactionLast,
			navErr:    fmt.Errorf("x: %w", domain.ErrStaleSession),
			navigates: true,
		},
		{name: "other emoji", emoji: "👍"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := new(MockNavigator)
			r := new(MockRemover)

			if tc.navigates {
				dir, _ := sender.ReactionDirection(tc.emoji)
				n.On("Navigate", mock.Anything, domain.NavigationEvent{
					Message: ref, Actor: domain.Actor{ID: "u"}, Direction: dir,
				}).Return(tc.navErr == nil, tc.navErr).Once()
			}
			if tc.wantRemove {
				r.On("RemoveReaction", mock.Anything, ref, tc.emoji, "u").Return(nil).Once()
			}

			h := NewDiscord(t.Context(), new(MockDispatcher), n, r, sender.ReactionDirection)
			h.OnMessageReactionAdd(nil, &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
				UserID: "u", MessageID: "m", ChannelID: "c", Emoji: discordgo.Emoji{Name: tc.emoji},
			}})

			n.AssertExpectations(t)
			r.AssertExpectations(t)
			if !tc.wantRemove {
				r.AssertNotCalled(t, "RemoveReaction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}
