package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Allow(actorID string) bool
}

// Limiter throttles command invocations per actor with a token bucket.
type Limiter struct {
	clock    clockwork.Clock
	limit    rate.Limit
	burst    int
	idle     time.Duration
	mutex    sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLimiter allows perMinute invocations per actor with the given burst. Actors idle for longer than idle are
// forgotten by a background loop bound to ctx. A nil clock uses the real one.
func NewLimiter(ctx context.Context, clock clockwork.Clock, perMinute float64, burst int, idle time.Duration) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	l := &Limiter{
		clock:    clock,
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
		idle:     idle,
		visitors: make(map[string]*visitor),
	}

	if idle > 0 {
		go l.PruneIdle(ctx)
	}

	return l
}

func (l *Limiter) Allow(actorID string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	v, ok := l.visitors[actorID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[actorID] = v
	}
	v.seen = l.clock.Now()

	return v.limiter.AllowN(v.seen, 1)
}

func (l *Limiter) PruneIdle(ctx context.Context) {
	t := l.clock.NewTicker(l.idle)
	defer t.Stop()

	for {
		select {
		case <-t.Chan():
			l.prune(l.clock.Now().Add(-l.idle))
		case <-ctx.Done():
			log.Debug().Msg("stopping limiter pruning")
			return
		}
	}
}

func (l *Limiter) prune(before time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for id, v := range l.visitors {
		if v.seen.Before(before) {
			delete(l.visitors, id)
		}
	}

	log.Trace().Int("visitors", len(l.visitors)).Msg("pruned idle rate limit entries")
}
