package service

import (
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"errors"

	"github.com/spf13/viper"
)

type Policy interface {
	Authorize(actor domain.Actor, chat domain.Chat, cmd *command.Command) error
}

// Authorizer gates commands on ownership, chat kind and permissions. It holds no mutable state.
type Authorizer struct {
	owners map[string]struct{}
}

func NewAuthorizer() (*Authorizer, error) {
	var list []string

	err := viper.UnmarshalKey("bot.owner_ids", &list)
	if err != nil {
		return nil, errors.New("failed to load owner IDs")
	}

	return NewAuthorizerWithOwners(list...), nil
}

func NewAuthorizerWithOwners(ids ...string) *Authorizer {
	owners := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		owners[id] = struct{}{}
	}

	return &Authorizer{owners: owners}
}

func (a *Authorizer) IsOwner(actorID string) bool {
	_, ok := a.owners[actorID]
	return ok
}

// Authorize runs the checks in a fixed order and returns a *domain.AuthorizationError for the first that fails.
func (a *Authorizer) Authorize(actor domain.Actor, chat domain.Chat, cmd *command.Command) error {
	if cmd.OwnerOnly && !a.IsOwner(actor.ID) {
		return &domain.AuthorizationError{Reason: domain.DenyOwnerOnly}
	}

	if cmd.GuildOnly && !chat.IsGroup() {
		return &domain.AuthorizationError{Reason: domain.DenyGuildOnly}
	}

	if cmd.Permissions != 0 && !actor.Permissions.Has(cmd.Permissions) {
		return &domain.AuthorizationError{Reason: domain.DenyMissingPermission}
	}

	return nil
}
