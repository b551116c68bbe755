package port

import (
	"context"
	"csbot/internal/core/domain"
)

type MessageSender interface {
	// SendMessage posts content into the given chat and returns a reference to the sent message.
	SendMessage(ctx context.Context, chat domain.Chat, content domain.Content) (domain.MessageRef, error)
	// EditMessage replaces the content of a previously sent message in place.
	EditMessage(ctx context.Context, ref domain.MessageRef, content domain.Content) error
}

type NavigationControls interface {
	// AttachControls adds the first/prev/next/last navigation UI to a message.
	AttachControls(ctx context.Context, ref domain.MessageRef) error
	// DetachControls removes the navigation UI so the message stops producing navigation events.
	DetachControls(ctx context.Context, ref domain.MessageRef) error
}

// PageSender is everything the pagination manager needs from the platform.
type PageSender interface {
	MessageSender
	NavigationControls
}

type PermissionResolver interface {
	// PermissionsIn returns the effective permissions of an actor within a group chat.
	PermissionsIn(ctx context.Context, actor domain.Actor, chat domain.Chat) (domain.Permission, error)
}
