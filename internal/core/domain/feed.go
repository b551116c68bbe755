package domain

import "time"

// Feed is an RSS subscription of a single channel.
type Feed struct {
	ID        uint
	URL       string
	GuildID   string
	ChannelID string
	LastSeen  time.Time
}

type FeedDocument struct {
	Title       string
	Description string
	ImageURL    string
	Items       []FeedItem
}

type FeedItem struct {
	Title       string
	Link        string
	Description string
	Author      string
	Published   time.Time
}

// Sound is a single variant of a chatsound.
type Sound struct {
	Name string
	Path string
}

// FeedTitle heads every feed related reply.
const FeedTitle = "📢 RSS feeds"
