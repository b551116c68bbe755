package service

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/port"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPageSize    = 10
	DefaultPageTimeout = 2 * time.Minute
	detachTimeout      = 10 * time.Second
)

// Session is one navigable result set, keyed by the message that displays it.
type Session struct {
	mutex   sync.Mutex
	ref     domain.MessageRef
	ownerID string
	items   []string
	size    int
	current int
	last    int
	render  domain.Renderer

	expires time.Time
	timer   clockwork.Timer
	// gen is bumped whenever the timer is re-armed, so a timer that already fired for an older generation is ignored.
	gen    uint64
	closed bool
}

func (s *Session) Ref() domain.MessageRef {
	return s.ref
}

// Page returns a snapshot of the session state.
func (s *Session) Page() domain.Page {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.page()
}

func (s *Session) page() domain.Page {
	return domain.Page{Items: s.items, Current: s.current, Last: s.last, Size: s.size}
}

// Pager keeps track of live pagination sessions and routes navigation events to them. Operations on one session
// are serialised, operations on different sessions never wait on each other beyond a map lookup.
type Pager struct {
	sender   port.PageSender
	clock    clockwork.Clock
	ttl      time.Duration
	pageSize int
	observer port.Observer

	mutex    sync.Mutex
	sessions map[domain.MessageRef]*Session
}

type PagerParams struct {
	Sender   port.PageSender
	Clock    clockwork.Clock
	Timeout  time.Duration
	PageSize int
	Observer port.Observer
}

func NewPager(p PagerParams) *Pager {
	pg := &Pager{
		sender:   p.Sender,
		clock:    p.Clock,
		ttl:      p.Timeout,
		pageSize: p.PageSize,
		observer: p.Observer,
		sessions: make(map[domain.MessageRef]*Session),
	}

	if pg.clock == nil {
		pg.clock = clockwork.NewRealClock()
	}
	if pg.ttl <= 0 {
		pg.ttl = DefaultPageTimeout
	}
	if pg.pageSize <= 0 {
		pg.pageSize = DefaultPageSize
	}
	if pg.observer == nil {
		pg.observer = port.NopObserver{}
	}

	return pg
}

func (p *Pager) Paginate(ctx context.Context, req domain.PageRequest) (domain.MessageRef, error) {
	s, err := p.Create(ctx, req)
	if err != nil {
		return domain.MessageRef{}, err
	}

	return s.Ref(), nil
}

// Create renders the first page of req and registers the session under the message displaying it.
func (p *Pager) Create(ctx context.Context, req domain.PageRequest) (*Session, error) {
	if req.Render == nil {
		return nil, errors.New("pagination requires a renderer")
	}

	size := req.PageSize
	if size <= 0 {
		size = p.pageSize
	}

	items := append([]string(nil), req.Items...)
	s := &Session{
		ownerID: req.Owner.ID,
		items:   items,
		size:    size,
		current: 1,
		last:    domain.LastPage(len(items), size),
		render:  req.Render,
	}

	content := s.render(s.page())

	if req.Anchor != nil {
		s.ref = *req.Anchor
	} else {
		ref, err := p.sender.SendMessage(ctx, req.Chat, content)
		if err != nil {
			return nil, fmt.Errorf("failed to render first page: %w", err)
		}
		s.ref = ref
	}

	l := log.With().Str("session", s.ref.String()).Int("items", len(items)).Int("pages", s.last).Logger()

	// s stays locked until it is fully set up, so navigation and a later create on the same message wait for it.
	s.mutex.Lock()
	defer s.mutex.Unlock()

	hadControls, live := p.reserve(s)

	if req.Anchor != nil {
		if err := p.sender.EditMessage(ctx, s.ref, content); err != nil {
			s.closed = true
			live = p.release(s)
			p.observer.SessionsLive(live)

			if hadControls {
				if detachErr := p.sender.DetachControls(ctx, s.ref); detachErr != nil {
					l.Warn().Err(detachErr).Msg("failed to detach navigation controls")
				}
			}

			return nil, fmt.Errorf("failed to render first page: %w", err)
		}
	}

	switch {
	case s.last > 1:
		if err := p.sender.AttachControls(ctx, s.ref); err != nil {
			l.Warn().Err(err).Msg("failed to attach navigation controls")
		}
	case hadControls:
		if err := p.sender.DetachControls(ctx, s.ref); err != nil {
			l.Warn().Err(err).Msg("failed to detach navigation controls")
		}
	}

	p.arm(s)

	p.observer.SessionsLive(live)
	l.Debug().Msg("created pagination session")

	return s, nil
}

// reserve registers s under its message and closes the session it replaces in one step, so at most one live
// session exists per message. It reports whether the replaced session was showing controls and how many sessions
// are live. Must be called with s.mutex held.
func (p *Pager) reserve(s *Session) (bool, int) {
	p.mutex.Lock()
	old, ok := p.sessions[s.ref]
	p.sessions[s.ref] = s
	live := len(p.sessions)
	p.mutex.Unlock()

	if !ok {
		return false, live
	}

	// waits for a create still setting up old
	old.mutex.Lock()
	defer old.mutex.Unlock()

	hadControls := !old.closed && old.last > 1
	old.closed = true
	if old.timer != nil {
		old.timer.Stop()
	}

	log.Debug().Str("session", s.ref.String()).Msg("superseded pagination session")

	return hadControls, live
}

// release forgets s unless it was already replaced and returns how many sessions are live.
func (p *Pager) release(s *Session) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.sessions[s.ref] == s {
		delete(p.sessions, s.ref)
	}

	return len(p.sessions)
}

// Navigate applies a navigation event. It returns true when the page changed. Events for unknown, expired or
// superseded sessions and events from anyone but the owner return an error wrapping domain.ErrStaleSession.
func (p *Pager) Navigate(ctx context.Context, ev domain.NavigationEvent) (bool, error) {
	p.mutex.Lock()
	s, ok := p.sessions[ev.Message]
	p.mutex.Unlock()

	if !ok {
		return false, fmt.Errorf("%s: %w", ev.Message, domain.ErrStaleSession)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch {
	case s.closed:
		return false, fmt.Errorf("%s closed: %w", ev.Message, domain.ErrStaleSession)
	case ev.Actor.ID != s.ownerID:
		return false, fmt.Errorf("%s not owned by %s: %w", ev.Message, ev.Actor.ID, domain.ErrStaleSession)
	case !p.clock.Now().Before(s.expires):
		return false, fmt.Errorf("%s expired: %w", ev.Message, domain.ErrStaleSession)
	}

	next := clamp(s.current+delta(ev.Direction, s.last), 1, s.last)
	if next == s.current {
		return false, nil
	}

	previous := s.current
	s.current = next

	if err := p.sender.EditMessage(ctx, s.ref, s.render(s.page())); err != nil {
		s.current = previous
		return false, fmt.Errorf("failed to render page %d: %w", next, err)
	}

	p.arm(s)

	log.Trace().Str("session", s.ref.String()).Int("page", next).Msg("navigated pagination session")

	return true, nil
}

func (p *Pager) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.sessions)
}

// Close stops every expiry timer and forgets all sessions without touching the platform.
func (p *Pager) Close() {
	p.mutex.Lock()
	sessions := p.sessions
	p.sessions = make(map[domain.MessageRef]*Session)
	p.mutex.Unlock()

	for _, s := range sessions {
		s.mutex.Lock()
		s.closed = true
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mutex.Unlock()
	}

	p.observer.SessionsLive(0)
}

// arm (re)starts the expiry timer. Must be called with s.mutex held.
func (p *Pager) arm(s *Session) {
	if s.timer != nil {
		s.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.expires = p.clock.Now().Add(p.ttl)
	s.timer = p.clock.AfterFunc(p.ttl, func() {
		p.expire(s, gen)
	})
}

func (p *Pager) expire(s *Session, gen uint64) {
	s.mutex.Lock()
	if s.closed || s.gen != gen {
		s.mutex.Unlock()
		return
	}
	s.closed = true
	s.mutex.Unlock()

	p.observer.SessionsLive(p.release(s))
	log.Debug().Str("session", s.ref.String()).Msg("pagination session expired")

	if s.last <= 1 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
	defer cancel()

	if err := p.sender.DetachControls(ctx, s.ref); err != nil {
		log.Warn().Err(err).Str("session", s.ref.String()).Msg("failed to detach navigation controls")
	}
}

func delta(d domain.Direction, last int) int {
	switch d {
	case domain.First:
		return -last
	case domain.Prev:
		return -1
	case domain.Next:
		return 1
	case domain.Last:
		return last
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
