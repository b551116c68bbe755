package port

import (
	"context"
	"csbot/internal/core/domain"
	"time"
)

type FeedStore interface {
	// FindOrCreate returns the subscription for url in a channel, creating it when missing.
	FindOrCreate(ctx context.Context, url, guildID, channelID string) (domain.Feed, bool, error)
	ListByChannel(ctx context.Context, guildID, channelID string) ([]domain.Feed, error)
	ListAll(ctx context.Context) ([]domain.Feed, error)
	Delete(ctx context.Context, id uint) error
	UpdateLastSeen(ctx context.Context, id uint, seen time.Time) error
}

type FeedParser interface {
	// Parse fetches and parses the feed at url.
	Parse(ctx context.Context, url string) (domain.FeedDocument, error)
}

type SoundIndex interface {
	// Loaded reports whether the sound list has been fetched yet.
	Loaded() bool
	Names() []string
	Variants(name string) ([]domain.Sound, bool)
	URL(sound domain.Sound) string
}
