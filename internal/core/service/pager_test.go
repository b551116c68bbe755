package service

import (
	"context"
	"csbot/internal/core/domain"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTTL = time.Minute

func numbered(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = strconv.Itoa(i + 1)
	}
	return items
}

func footerRenderer(p domain.Page) domain.Content {
	return domain.Content{
		Description: fmt.Sprint(p.Visible()),
		Footer:      fmt.Sprintf("Page %d/%d", p.Current, p.Last),
	}
}

func newTestPager() (*Pager, *fakeSender, clockwork.FakeClock) {
	s := &fakeSender{}
	c := clockwork.NewFakeClock()

	return NewPager(PagerParams{Sender: s, Clock: c, Timeout: testTTL, PageSize: 5}), s, c
}

var owner = domain.Actor{ID: "owner", Name: "owner"}

func create(t *testing.T, p *Pager, n int) *Session {
	t.Helper()

	s, err := p.Create(t.Context(), domain.PageRequest{
		Chat:   guildChat,
		Owner:  owner,
		Items:  numbered(n),
		Render: footerRenderer,
	})
	require.NoError(t, err)

	return s
}

func liveSession(p *Pager, ref domain.MessageRef) (*Session, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	s, ok := p.sessions[ref]
	return s, ok
}

func nav(p *Pager, s *Session, actor domain.Actor, d domain.Direction) (bool, error) {
	return p.Navigate(context.Background(), domain.NavigationEvent{Message: s.Ref(), Actor: actor, Direction: d})
}

func TestPager_Create(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 12)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Page 1/3", sent[0].Content.Footer)
	assert.Equal(t, "[1 2 3 4 5]", sent[0].Content.Description)
	assert.Equal(t, []domain.MessageRef{s.Ref()}, sender.Attached())
	assert.Equal(t, 1, p.Len())

	page := s.Page()
	assert.Equal(t, 1, page.Current)
	assert.Equal(t, 3, page.Last)
}

func TestPager_CreateSinglePage(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 3)

	assert.Empty(t, sender.Attached())
	assert.Equal(t, 1, p.Len())

	changed, err := nav(p, s, owner, domain.Next)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, sender.Edits())
}

func TestPager_CreateEmpty(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 0)

	assert.Equal(t, 1, s.Page().Last)
	assert.Equal(t, "Page 1/1", sender.Sent()[0].Content.Footer)
}

func TestPager_CreateSnapshotsItems(t *testing.T) {
	p, _, _ := newTestPager()
	items := numbered(6)

	s, err := p.Create(t.Context(), domain.PageRequest{Chat: guildChat, Owner: owner, Items: items, Render: footerRenderer})
	require.NoError(t, err)

	items[0] = "changed"
	assert.Equal(t, "1", s.Page().Items[0])
}

func TestPager_CreateSendFailure(t *testing.T) {
	p, sender, _ := newTestPager()
	sender.sendErr = errors.New("offline")

	_, err := p.Create(t.Context(), domain.PageRequest{Chat: guildChat, Owner: owner, Items: numbered(12),
		Render: footerRenderer})

	assert.Error(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestPager_Navigate(t *testing.T) {
	tests := []struct {
		name        string
		moves       []domain.Direction
		wantChanged []bool
		wantPage    int
		wantEdits   int
	}{
		{
			name:        "next clamps at the last page",
			moves:       []domain.Direction{domain.Next, domain.Next, domain.Next},
			wantChanged: []bool{true, true, false},
			wantPage:    3,
			wantEdits:   2,
		},
		{
			name:        "prev on first page is a no-op",
			moves:       []domain.Direction{domain.Prev},
			wantChanged: []bool{false},
			wantPage:    1,
		},
		{
			name:        "last then first",
			moves:       []domain.Direction{domain.Last, domain.First},
			wantChanged: []bool{true, true},
			wantPage:    1,
			wantEdits:   2,
		},
		{
			name:        "first on first page is a no-op",
			moves:       []domain.Direction{domain.First},
			wantChanged: []bool{false},
			wantPage:    1,
		},
		{
			name:        "last twice",
			moves:       []domain.Direction{domain.Last, domain.Last, domain.Prev},
			wantChanged: []bool{true, false, true},
			wantPage:    2,
			wantEdits:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, sender, _ := newTestPager()
			s := create(t, p, 12)

			for i, d := range tt.moves {
				changed, err := nav(p, s, owner, d)
				require.NoError(t, err)
				assert.Equal(t, tt.wantChanged[i], changed, "move %d (%s)", i, d)
			}

			assert.Equal(t, tt.wantPage, s.Page().Current)

			edits := sender.Edits()
			assert.Len(t, edits, tt.wantEdits)
			if len(edits) > 0 {
				assert.Equal(t, fmt.Sprintf("Page %d/3", tt.wantPage), edits[len(edits)-1].Content.Footer)
			}
		})
	}
}

func TestPager_NavigateLastPageItems(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 12)

	_, err := nav(p, s, owner, domain.Last)
	require.NoError(t, err)

	assert.Equal(t, "[11 12]", sender.Edits()[0].Content.Description)
}

func TestPager_NavigateRejected(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 12)

	changed, err := nav(p, s, domain.Actor{ID: "someone else"}, domain.Next)
	assert.False(t, changed)
	assert.ErrorIs(t, err, domain.ErrStaleSession)

	changed, err = p.Navigate(t.Context(), domain.NavigationEvent{
		Message:   domain.MessageRef{ChatID: "chan", MessageID: "unknown"},
		Actor:     owner,
		Direction: domain.Next,
	})
	assert.False(t, changed)
	assert.ErrorIs(t, err, domain.ErrStaleSession)

	assert.Empty(t, sender.Edits())
	assert.Equal(t, 1, s.Page().Current)
}

func TestPager_NavigateEditFailureKeepsPage(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 12)
	sender.editErr = errors.New("message deleted")

	changed, err := nav(p, s, owner, domain.Next)
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, s.Page().Current)
}

func TestPager_Expiry(t *testing.T) {
	p, sender, clock := newTestPager()
	s := create(t, p, 12)

	clock.Advance(testTTL)

	assert.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(sender.Detached()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, s.Ref(), sender.Detached()[0])

	changed, err := nav(p, s, owner, domain.Next)
	assert.False(t, changed)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
}

func TestPager_ExpirySinglePageDoesNotDetach(t *testing.T) {
	p, sender, clock := newTestPager()
	create(t, p, 2)

	clock.Advance(testTTL)

	assert.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sender.Detached())
}

func TestPager_NavigationExtendsLifetime(t *testing.T) {
	p, _, clock := newTestPager()
	s := create(t, p, 12)

	clock.Advance(testTTL - time.Second)
	changed, err := nav(p, s, owner, domain.Next)
	require.NoError(t, err)
	require.True(t, changed)

	clock.Advance(2 * time.Second)
	changed, err = nav(p, s, owner, domain.Next)
	require.NoError(t, err)
	assert.True(t, changed, "session should still be live")
	assert.Equal(t, 1, p.Len())

	clock.Advance(testTTL)
	assert.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPager_Supersede(t *testing.T) {
	p, sender, clock := newTestPager()
	old := create(t, p, 12)
	ref := old.Ref()

	_, err := nav(p, old, owner, domain.Next)
	require.NoError(t, err)

	other := domain.Actor{ID: "other"}
	replacement, err := p.Create(t.Context(), domain.PageRequest{
		Chat:   guildChat,
		Anchor: &ref,
		Owner:  other,
		Items:  numbered(7),
		Render: footerRenderer,
	})
	require.NoError(t, err)

	assert.Equal(t, ref, replacement.Ref())
	assert.Len(t, sender.Sent(), 1, "the anchor is edited, not re-sent")
	assert.Equal(t, "Page 1/2", sender.Edits()[len(sender.Edits())-1].Content.Footer)
	assert.Equal(t, 1, p.Len())

	live, ok := liveSession(p, ref)
	require.True(t, ok)
	assert.Same(t, replacement, live)

	// the previous owner no longer controls the message
	_, err = nav(p, old, owner, domain.Next)
	assert.ErrorIs(t, err, domain.ErrStaleSession)

	changed, err := nav(p, replacement, other, domain.Next)
	require.NoError(t, err)
	assert.True(t, changed)

	// the superseded timer must not expire the replacement
	clock.Advance(testTTL / 2)
	assert.Equal(t, 1, p.Len())
}

func TestPager_SupersedeWithSinglePageDetaches(t *testing.T) {
	p, sender, _ := newTestPager()
	old := create(t, p, 12)
	ref := old.Ref()

	_, err := p.Create(t.Context(), domain.PageRequest{
		Chat:   guildChat,
		Anchor: &ref,
		Owner:  owner,
		Items:  numbered(2),
		Render: footerRenderer,
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.MessageRef{ref}, sender.Detached())
}

func TestPager_ConcurrentSupersede(t *testing.T) {
	p, sender, clock := newTestPager()
	first := create(t, p, 12)
	ref := first.Ref()

	sender.mutex.Lock()
	sender.editDelay = 5 * time.Millisecond
	sender.mutex.Unlock()

	const creators = 4
	sessions := make([]*Session, creators)

	var wg sync.WaitGroup
	for i := range creators {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.Create(context.Background(), domain.PageRequest{
				Chat:   guildChat,
				Anchor: &ref,
				Owner:  owner,
				Items:  numbered(12),
				Render: footerRenderer,
			})
			assert.NoError(t, err)
			sessions[i] = s
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, p.Len())
	winner, ok := liveSession(p, ref)
	require.True(t, ok)

	open := 0
	for _, s := range append(sessions, first) {
		s.mutex.Lock()
		if !s.closed {
			open++
			assert.Same(t, winner, s)
		}
		s.mutex.Unlock()
	}
	assert.Equal(t, 1, open, "one message has at most one live session")

	clock.Advance(testTTL)

	assert.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(sender.Detached()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(sender.Detached()) > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestPager_SupersedeEditFailure(t *testing.T) {
	p, sender, _ := newTestPager()
	old := create(t, p, 12)
	ref := old.Ref()

	sender.mutex.Lock()
	sender.editErr = errors.New("message deleted")
	sender.mutex.Unlock()

	_, err := p.Create(t.Context(), domain.PageRequest{
		Chat:   guildChat,
		Anchor: &ref,
		Owner:  owner,
		Items:  numbered(12),
		Render: footerRenderer,
	})

	assert.Error(t, err)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, []domain.MessageRef{ref}, sender.Detached())

	_, err = nav(p, old, owner, domain.Next)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
}

func TestPager_ConcurrentNavigation(t *testing.T) {
	p, sender, _ := newTestPager()
	s := create(t, p, 12)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = nav(p, s, owner, domain.Next)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, s.Page().Current)
	assert.Len(t, sender.Edits(), 2)
}

func TestPager_IndependentSessions(t *testing.T) {
	p, _, _ := newTestPager()
	a := create(t, p, 12)
	b := create(t, p, 12)

	_, err := nav(p, a, owner, domain.Last)
	require.NoError(t, err)

	assert.Equal(t, 3, a.Page().Current)
	assert.Equal(t, 1, b.Page().Current)
	assert.Equal(t, 2, p.Len())
}

func TestPager_Close(t *testing.T) {
	p, sender, clock := newTestPager()
	s := create(t, p, 12)

	p.Close()
	assert.Equal(t, 0, p.Len())

	clock.Advance(testTTL)
	_, err := nav(p, s, owner, domain.Next)
	assert.ErrorIs(t, err, domain.ErrStaleSession)
	assert.Empty(t, sender.Detached())
}

func TestPager_Paginate(t *testing.T) {
	p, sender, _ := newTestPager()

	ref, err := p.Paginate(t.Context(), domain.PageRequest{
		Chat:     directChat,
		Owner:    owner,
		Items:    numbered(4),
		Render:   footerRenderer,
		PageSize: 2,
	})
	require.NoError(t, err)

	s, ok := liveSession(p, ref)
	require.True(t, ok)
	assert.Equal(t, 2, s.Page().Last)
	assert.Equal(t, []domain.MessageRef{ref}, sender.Attached())
}
