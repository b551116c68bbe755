package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSendingReplyFailed = errors.New("failed to send reply")
	ErrEmptyArgs          = errors.New("empty arguments")
	ErrDuplicateName      = errors.New("duplicate command name")
	ErrCommandNotFound    = errors.New("command not found")
	ErrStaleSession       = errors.New("no live pagination session")

	ErrInvalidFeedURL  = errors.New("invalid feed url")
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrNotAFeed        = errors.New("not a feed")
	ErrFeedExists      = errors.New("feed already exists")
	ErrInvalidChoice   = errors.New("invalid choice")
)

type DenyReason string

const (
	DenyOwnerOnly         DenyReason = "owner-only"
	DenyGuildOnly         DenyReason = "guild-only"
	DenyMissingPermission DenyReason = "missing-permission"
)

// AuthorizationError carries the reason category shown to the user. The exact permission set is never part of it.
type AuthorizationError struct {
	Reason DenyReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

// UserMessage is the denial text sent back to the chat.
func (e *AuthorizationError) UserMessage() string {
	switch e.Reason {
	case DenyOwnerOnly:
		return "this command is restricted to the bot owners."
	case DenyGuildOnly:
		return "this command can only be used in a server."
	case DenyMissingPermission:
		return "you don't have the permissions required to use this command."
	default:
		return "you are not allowed to use this command."
	}
}
