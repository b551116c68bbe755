package service

import (
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthorizer(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr bool
		owners  []string
	}{
		{
			name: "loads owner IDs",
			setup: func() {
				viper.Set("bot.owner_ids", []string{"1", "2"})
			},
			owners: []string{"1", "2"},
		},
		{
			name: "numeric IDs are accepted",
			setup: func() {
				viper.Set("bot.owner_ids", []int{42})
			},
			owners: []string{"42"},
		},
		{
			name: "invalid type returns error",
			setup: func() {
				viper.Set("bot.owner_ids", map[string]any{"a": map[string]any{"b": 1}})
			},
			wantErr: true,
		},
		{
			name:   "missing key means no owners",
			setup:  func() {},
			owners: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()
			auth, err := NewAuthorizer()

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, auth)
				return
			}

			require.NoError(t, err)
			assert.Len(t, auth.owners, len(tt.owners))
			for _, id := range tt.owners {
				assert.True(t, auth.IsOwner(id))
			}
		})
	}
}

func TestAuthorizer_Authorize(t *testing.T) {
	a := NewAuthorizerWithOwners("owner")

	dm := domain.Chat{ID: "dm", Kind: domain.Direct}
	guild := domain.Chat{ID: "chan", Kind: domain.Group, GuildID: "g"}

	tests := []struct {
		name   string
		actor  domain.Actor
		chat   domain.Chat
		cmd    command.Command
		reason domain.DenyReason
	}{
		{
			name:  "unrestricted command is allowed everywhere",
			actor: domain.Actor{ID: "u"},
			chat:  dm,
			cmd:   command.Command{Name: "ping"},
		},
		{
			name:   "owner-only denies others",
			actor:  domain.Actor{ID: "u", Permissions: domain.PermAll},
			chat:   guild,
			cmd:    command.Command{Name: "exec", OwnerOnly: true},
			reason: domain.DenyOwnerOnly,
		},
		{
			name:  "owner-only allows owner",
			actor: domain.Actor{ID: "owner"},
			chat:  dm,
			cmd:   command.Command{Name: "exec", OwnerOnly: true},
		},
		{
			name:   "guild-only in direct chat",
			actor:  domain.Actor{ID: "u"},
			chat:   dm,
			cmd:    command.Command{Name: "rss", GuildOnly: true},
			reason: domain.DenyGuildOnly,
		},
		{
			name:   "owner check comes before guild check",
			actor:  domain.Actor{ID: "u"},
			chat:   dm,
			cmd:    command.Command{Name: "x", OwnerOnly: true, GuildOnly: true},
			reason: domain.DenyOwnerOnly,
		},
		{
			name:   "guild check comes before permission check",
			actor:  domain.Actor{ID: "u"},
			chat:   dm,
			cmd:    command.Command{Name: "rss", GuildOnly: true, Permissions: domain.PermManageGuild},
			reason: domain.DenyGuildOnly,
		},
		{
			name:   "missing permission",
			actor:  domain.Actor{ID: "u", Permissions: domain.PermManageMessages},
			chat:   guild,
			cmd:    command.Command{Name: "rss", GuildOnly: true, Permissions: domain.PermManageGuild},
			reason: domain.DenyMissingPermission,
		},
		{
			name:   "partial permission set is not enough",
			actor:  domain.Actor{ID: "u", Permissions: domain.PermBanMembers},
			chat:   guild,
			cmd:    command.Command{Name: "x", Permissions: domain.PermBanMembers | domain.PermKickMembers},
			reason: domain.DenyMissingPermission,
		},
		{
			name:  "superset of permissions is allowed",
			actor: domain.Actor{ID: "u", Permissions: domain.PermManageGuild | domain.PermBanMembers},
			chat:  guild,
			cmd:   command.Command{Name: "rss", GuildOnly: true, Permissions: domain.PermManageGuild},
		},
		{
			name:   "owners still need guild permissions",
			actor:  domain.Actor{ID: "owner"},
			chat:   guild,
			cmd:    command.Command{Name: "rss", Permissions: domain.PermManageGuild},
			reason: domain.DenyMissingPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(tt.actor, tt.chat, &tt.cmd)

			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			var authErr *domain.AuthorizationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.reason, authErr.Reason)
		})
	}
}
