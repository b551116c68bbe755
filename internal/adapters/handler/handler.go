package handler

import (
	"context"
	"csbot/internal/core/domain"
	"errors"

	"github.com/rs/zerolog/log"
)

type Dispatcher interface {
	Handle(ctx context.Context, msg *domain.Message)
}

type Navigator interface {
	Navigate(ctx context.Context, ev domain.NavigationEvent) (bool, error)
}

// navigate forwards ev and logs the outcome. Stale events are expected and only traced. It reports whether the
// event was accepted by a live session.
func navigate(ctx context.Context, n Navigator, ev domain.NavigationEvent) bool {
	changed, err := n.Navigate(ctx, ev)

	switch {
	case errors.Is(err, domain.ErrStaleSession):
		log.Trace().Err(err).Msg("dropping navigation event")
	case err != nil:
		log.Warn().Err(err).Str("session", ev.Message.String()).Msg("failed to navigate")
	default:
		log.Trace().Str("session", ev.Message.String()).Stringer("direction", ev.Direction).
			Bool("changed", changed).Msg("navigation event")
	}

	return err == nil
}
