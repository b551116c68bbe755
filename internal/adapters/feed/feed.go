package feed

import (
	"context"
	"csbot/internal/core/domain"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
)

const DefaultTimeout = 15 * time.Second

// Parser fetches RSS, Atom and JSON feeds. Errors that mean the URL will never work are wrapped in
// domain.ErrInvalidFeedURL, domain.ErrFeedUnreachable or domain.ErrNotAFeed, everything else is transient.
type Parser struct {
	parser *gofeed.Parser
}

func NewParser(timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "csbot"

	return &Parser{parser: p}
}

func (p *Parser) Parse(ctx context.Context, feedURL string) (domain.FeedDocument, error) {
	u, err := url.Parse(feedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.FeedDocument{}, fmt.Errorf("%q: %w", feedURL, domain.ErrInvalidFeedURL)
	}

	f, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return domain.FeedDocument{}, classify(feedURL, err)
	}

	return toDocument(f), nil
}

func classify(feedURL string, err error) error {
	var httpErr gofeed.HTTPError
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("fetching %s: %w", feedURL, err)
		}
		return fmt.Errorf("%s returned %d: %w", feedURL, httpErr.StatusCode, domain.ErrFeedUnreachable)
	case errors.As(err, &dnsErr):
		if dnsErr.IsTemporary || dnsErr.IsTimeout {
			return fmt.Errorf("resolving %s: %w", feedURL, err)
		}
		return fmt.Errorf("%s: %w: %w", feedURL, domain.ErrFeedUnreachable, err)
	case isTimeout(err):
		return fmt.Errorf("fetching %s: %w", feedURL, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return fmt.Errorf("%s: %w: %w", feedURL, domain.ErrFeedUnreachable, err)
	case errors.Is(err, gofeed.ErrFeedTypeNotDetected):
		return fmt.Errorf("%s: %w", feedURL, domain.ErrNotAFeed)
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("fetching %s: %w", feedURL, err)
		}
		// the body was detected as a feed but could not be decoded
		return fmt.Errorf("%s: %w: %w", feedURL, domain.ErrNotAFeed, err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func toDocument(f *gofeed.Feed) domain.FeedDocument {
	doc := domain.FeedDocument{
		Title:       f.Title,
		Description: f.Description,
		Items:       make([]domain.FeedItem, 0, len(f.Items)),
	}
	if f.Image != nil {
		doc.ImageURL = f.Image.URL
	}

	for _, it := range f.Items {
		if it == nil {
			continue
		}

		item := domain.FeedItem{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
		}
		switch {
		case it.PublishedParsed != nil:
			item.Published = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			item.Published = *it.UpdatedParsed
		}
		if len(it.Authors) > 0 && it.Authors[0] != nil {
			item.Author = it.Authors[0].Name
		}

		doc.Items = append(doc.Items, item)
	}

	return doc
}
