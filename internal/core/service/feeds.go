package service

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/port"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFeedInterval = 5 * time.Minute
	DefaultFeedWorkers  = 4
	// maxPostsPerCheck bounds how many new items a single check posts into a channel.
	maxPostsPerCheck = 5
)

// RemovedFeedError is returned when a subscription was dropped because its URL is not a usable feed.
type RemovedFeedError struct {
	Feed  domain.Feed
	Cause error
}

func (e *RemovedFeedError) Error() string {
	return fmt.Sprintf("removed feed %s: %v", e.Feed.URL, e.Cause)
}

func (e *RemovedFeedError) Unwrap() error {
	return e.Cause
}

// UserMessage explains to the channel why the subscription is gone.
func (e *RemovedFeedError) UserMessage() string {
	switch {
	case errors.Is(e.Cause, domain.ErrInvalidFeedURL):
		return fmt.Sprintf("Invalid URL `%s`.", e.Feed.URL)
	case errors.Is(e.Cause, domain.ErrNotAFeed):
		return fmt.Sprintf("URL `%s` is not a valid RSS feed.", e.Feed.URL)
	default:
		return fmt.Sprintf("Feed with URL `%s` could not be checked. It has been removed.", e.Feed.URL)
	}
}

type FeedService struct {
	store    port.FeedStore
	parser   port.FeedParser
	sender   port.MessageSender
	clock    clockwork.Clock
	interval time.Duration
	workers  int

	// runMutex keeps checks from overlapping so an item is never posted twice.
	runMutex sync.Mutex
}

type FeedServiceParams struct {
	Store    port.FeedStore
	Parser   port.FeedParser
	Sender   port.MessageSender
	Clock    clockwork.Clock
	Interval time.Duration
	Workers  int
}

func NewFeedService(p FeedServiceParams) *FeedService {
	s := &FeedService{
		store:    p.Store,
		parser:   p.Parser,
		sender:   p.Sender,
		clock:    p.Clock,
		interval: p.Interval,
		workers:  p.Workers,
	}

	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.interval <= 0 {
		s.interval = DefaultFeedInterval
	}
	if s.workers <= 0 {
		s.workers = DefaultFeedWorkers
	}

	return s
}

// Add subscribes a channel to url and runs a first check. A URL that turns out not to be a feed is removed again
// and reported through a *RemovedFeedError.
func (s *FeedService) Add(ctx context.Context, url, guildID, channelID string) (domain.Feed, error) {
	url = strings.TrimSpace(url)
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return domain.Feed{}, fmt.Errorf("%q: %w", url, domain.ErrInvalidFeedURL)
	}

	feed, created, err := s.store.FindOrCreate(ctx, url, guildID, channelID)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("failed to store feed: %w", err)
	}

	if !created {
		return feed, fmt.Errorf("%s: %w", url, domain.ErrFeedExists)
	}

	log.Info().Str("url", url).Str("channelId", channelID).Msg("added feed subscription")

	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	if err := s.check(ctx, &feed); err != nil {
		return feed, err
	}

	return feed, nil
}

func (s *FeedService) List(ctx context.Context, guildID, channelID string) ([]domain.Feed, error) {
	return s.store.ListByChannel(ctx, guildID, channelID)
}

// Remove deletes the choice-th subscription of a channel as numbered by List, starting at one.
func (s *FeedService) Remove(ctx context.Context, guildID, channelID string, choice int) (domain.Feed, error) {
	feeds, err := s.store.ListByChannel(ctx, guildID, channelID)
	if err != nil {
		return domain.Feed{}, err
	}

	idx := max(choice-1, 0)
	if idx >= len(feeds) {
		return domain.Feed{}, fmt.Errorf("%d: %w", choice, domain.ErrInvalidChoice)
	}

	feed := feeds[idx]
	if err := s.store.Delete(ctx, feed.ID); err != nil {
		return domain.Feed{}, fmt.Errorf("failed to delete feed: %w", err)
	}

	log.Info().Str("url", feed.URL).Str("channelId", channelID).Msg("removed feed subscription")

	return feed, nil
}

// CheckChannel checks every subscription of one channel and returns how many there were. Removed feeds are
// reported in the returned error.
func (s *FeedService) CheckChannel(ctx context.Context, guildID, channelID string) (int, error) {
	feeds, err := s.store.ListByChannel(ctx, guildID, channelID)
	if err != nil {
		return 0, err
	}

	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	var errs []error
	for i := range feeds {
		if err := s.check(ctx, &feeds[i]); err != nil {
			errs = append(errs, err)
		}
	}

	return len(feeds), errors.Join(errs...)
}

// CheckAll checks every subscription with a bounded number of workers. It returns false if another check was
// already running.
func (s *FeedService) CheckAll(ctx context.Context) (bool, error) {
	if !s.runMutex.TryLock() {
		return false, nil
	}
	defer s.runMutex.Unlock()

	feeds, err := s.store.ListAll(ctx)
	if err != nil {
		return true, err
	}

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i := range feeds {
		feed := &feeds[i]
		g.Go(func() error {
			err := s.check(ctx, feed)

			var removed *RemovedFeedError
			if errors.As(err, &removed) {
				s.notify(ctx, feed, removed.UserMessage())
			} else if err != nil {
				log.Warn().Err(err).Str("url", feed.URL).Msg("feed check failed")
			}

			return nil
		})
	}

	_ = g.Wait()

	log.Debug().Int("feeds", len(feeds)).Msg("checked all feeds")

	return true, nil
}

// Run checks all feeds once and then on every interval until ctx is done.
func (s *FeedService) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Msg("starting feed poller")

	t := s.clock.NewTicker(s.interval)
	defer t.Stop()

	for {
		if ran, err := s.CheckAll(ctx); err != nil {
			log.Error().Err(err).Msg("failed to check feeds")
		} else if !ran {
			log.Debug().Msg("feed check still running, skipping")
		}

		select {
		case <-t.Chan():
		case <-ctx.Done():
			log.Info().Msg("stopping feed poller")
			return nil
		}
	}
}

func (s *FeedService) check(ctx context.Context, feed *domain.Feed) error {
	l := log.With().Uint("feedId", feed.ID).Str("url", feed.URL).Logger()

	doc, err := s.parser.Parse(ctx, feed.URL)
	if err != nil {
		if !isPermanent(err) {
			return fmt.Errorf("failed to check %s: %w", feed.URL, err)
		}

		l.Warn().Err(err).Msg("removing broken feed")
		if delErr := s.store.Delete(ctx, feed.ID); delErr != nil {
			return errors.Join(&RemovedFeedError{Feed: *feed, Cause: err}, delErr)
		}

		return &RemovedFeedError{Feed: *feed, Cause: err}
	}

	fresh := newItems(doc.Items, feed.LastSeen)
	if len(fresh) == 0 {
		return nil
	}

	chat := domain.Chat{ID: feed.ChannelID, Kind: domain.Group, GuildID: feed.GuildID}
	for _, item := range fresh {
		if _, err := s.sender.SendMessage(ctx, chat, itemContent(doc, item)); err != nil {
			return errors.Join(domain.ErrSendingReplyFailed, err)
		}

		feed.LastSeen = item.Published
		if err := s.store.UpdateLastSeen(ctx, feed.ID, feed.LastSeen); err != nil {
			return fmt.Errorf("failed to update feed: %w", err)
		}
	}

	l.Debug().Int("posted", len(fresh)).Msg("posted new feed items")

	return nil
}

func (s *FeedService) notify(ctx context.Context, feed *domain.Feed, text string) {
	chat := domain.Chat{ID: feed.ChannelID, Kind: domain.Group, GuildID: feed.GuildID}

	_, err := s.sender.SendMessage(ctx, chat, domain.Content{Title: domain.FeedTitle, Description: text})
	if err != nil {
		log.Warn().Err(err).Str("channelId", feed.ChannelID).Msg("failed to notify channel about removed feed")
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidFeedURL) ||
		errors.Is(err, domain.ErrFeedUnreachable) ||
		errors.Is(err, domain.ErrNotAFeed)
}

// newItems returns the dated items published after seen, oldest first, keeping only the most recent few.
func newItems(items []domain.FeedItem, seen time.Time) []domain.FeedItem {
	var fresh []domain.FeedItem
	for _, item := range items {
		if !item.Published.IsZero() && item.Published.After(seen) {
			fresh = append(fresh, item)
		}
	}

	slices.SortFunc(fresh, func(a, b domain.FeedItem) int {
		return a.Published.Compare(b.Published)
	})

	if len(fresh) > maxPostsPerCheck {
		fresh = fresh[len(fresh)-maxPostsPerCheck:]
	}

	return fresh
}

func itemContent(doc domain.FeedDocument, item domain.FeedItem) domain.Content {
	footer := doc.Description
	if footer == "" {
		footer = doc.Title
	}

	return domain.Content{
		Title:       domain.Clip(item.Title, domain.TitleLimit),
		URL:         item.Link,
		Description: domain.Truncate(item.Description),
		Author:      domain.Clip(item.Author, domain.TitleLimit),
		Footer:      domain.Clip(footer, domain.TitleLimit),
	}
}
