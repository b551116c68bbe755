package port

import (
	"context"
	"csbot/internal/core/domain"
	"time"
)

type Paginator interface {
	// Paginate renders the first page of a result set and keeps the session navigable until it expires.
	Paginate(ctx context.Context, req domain.PageRequest) (domain.MessageRef, error)
}

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeDenied  Outcome = "denied"
	OutcomeFault   Outcome = "fault"
	OutcomeLimited Outcome = "limited"
)

type Observer interface {
	// CommandDispatched records one resolved command invocation.
	CommandDispatched(command string, outcome Outcome, took time.Duration)
	// SessionsLive reports the current number of live pagination sessions.
	SessionsLive(n int)
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) CommandDispatched(string, Outcome, time.Duration) {}

func (NopObserver) SessionsLive(int) {}
