package service

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"csbot/internal/core/port"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
)

type CommandResolver interface {
	Resolve(token string) (*command.Command, error)
}

type Dispatcher struct {
	prefix      string
	registry    CommandResolver
	policy      Policy
	sender      port.MessageSender
	paginator   port.Paginator
	permissions port.PermissionResolver
	limiter     RateLimiter
	observer    port.Observer
	timeout     time.Duration
}

type DispatcherParams struct {
	Prefix      string
	Registry    CommandResolver
	Policy      Policy
	Sender      port.MessageSender
	Paginator   port.Paginator
	Permissions port.PermissionResolver
	// Limiter is optional.
	Limiter  RateLimiter
	Observer port.Observer
	// Timeout bounds a single handler invocation. Zero means no deadline.
	Timeout time.Duration
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	observer := p.Observer
	if observer == nil {
		observer = port.NopObserver{}
	}

	return &Dispatcher{
		prefix:      p.Prefix,
		registry:    p.Registry,
		policy:      p.Policy,
		sender:      p.Sender,
		paginator:   p.Paginator,
		permissions: p.Permissions,
		limiter:     p.Limiter,
		observer:    observer,
		timeout:     p.Timeout,
	}
}

// Handle runs the command contained in msg, if any. It never panics and never returns an error: every failure is
// contained within the invocation and reported to the chat where appropriate.
func (d *Dispatcher) Handle(ctx context.Context, msg *domain.Message) {
	token, args, ok := command.SplitCommand(msg.Text, d.prefix)
	if !ok {
		return
	}

	cmd, err := d.registry.Resolve(token)
	if err != nil {
		log.Debug().Str("token", token).Str("chatId", msg.Chat.ID).Msg("ignoring unknown command")
		return
	}

	l := log.With().
		Str("messageId", msg.ID).
		Str("chatId", msg.Chat.ID).
		Str("actorId", msg.Author.ID).
		Str("command", cmd.Name).
		Logger()

	start := time.Now()

	if d.limiter != nil && !d.limiter.Allow(msg.Author.ID) {
		l.Debug().Msg("actor is rate limited, dropping command")
		d.observer.CommandDispatched(cmd.Name, port.OutcomeLimited, time.Since(start))
		return
	}

	invocation := *msg
	invocation.Author.Permissions = d.resolvePermissions(ctx, &l, cmd, msg)

	if err := d.policy.Authorize(invocation.Author, invocation.Chat, cmd); err != nil {
		d.deny(ctx, &l, &invocation, err)
		d.observer.CommandDispatched(cmd.Name, port.OutcomeDenied, time.Since(start))
		return
	}

	l.Info().Str("args", args).Msg("handling command")

	c := &command.Context{
		Message:   &invocation,
		Command:   cmd,
		Args:      args,
		Sender:    d.sender,
		Paginator: d.paginator,
	}

	if err := d.invoke(ctx, &l, c); err != nil {
		d.reportFault(ctx, &l, &invocation, err)
		d.observer.CommandDispatched(cmd.Name, port.OutcomeFault, time.Since(start))
		return
	}

	d.observer.CommandDispatched(cmd.Name, port.OutcomeOK, time.Since(start))

	if cmd.PostRun != nil {
		l.Info().Msg("running post-run hook")
		cmd.PostRun()
	}
}

func (d *Dispatcher) resolvePermissions(ctx context.Context, l *zerolog.Logger, cmd *command.Command,
	msg *domain.Message) domain.Permission {
	if cmd.Permissions == 0 || !msg.Chat.IsGroup() || d.permissions == nil {
		return msg.Author.Permissions
	}

	perms, err := d.permissions.PermissionsIn(ctx, msg.Author, msg.Chat)
	if err != nil {
		l.Warn().Err(err).Msg("failed to resolve actor permissions")
		return 0
	}

	l.Trace().Stringer("permissions", perms).Msg("resolved actor permissions")

	return perms
}

func (d *Dispatcher) deny(ctx context.Context, l *zerolog.Logger, msg *domain.Message, err error) {
	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		authErr = &domain.AuthorizationError{}
	}

	l.Info().Str("reason", string(authErr.Reason)).Msg("command denied")

	_, err = d.sender.SendMessage(ctx, msg.Chat, domain.TextContent(authErr.UserMessage()))
	if err != nil {
		l.Warn().Err(err).Msg("failed to send denial")
	}
}

// handlerFault is a failed or panicking handler invocation.
type handlerFault struct {
	err   error
	stack []byte
}

func (f *handlerFault) Error() string {
	return f.err.Error()
}

func (f *handlerFault) Unwrap() error {
	return f.err
}

func (d *Dispatcher) invoke(ctx context.Context, l *zerolog.Logger, c *command.Context) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var err error
	var pc panics.Catcher

	pc.Try(func() {
		err = c.Command.Handler(ctx, c)
	})

	if r := pc.Recovered(); r != nil {
		l.Trace().Msg("handler panicked")
		return &handlerFault{err: fmt.Errorf("panic: %v", r.Value), stack: r.Stack}
	}

	if err != nil {
		return &handlerFault{err: err}
	}

	return nil
}

func (d *Dispatcher) reportFault(ctx context.Context, l *zerolog.Logger, msg *domain.Message, err error) {
	incident, idErr := uuid.NewV4()
	if idErr != nil {
		l.Warn().Err(idErr).Msg("failed to create incident id")
	}

	event := l.Error().Err(err).Str("incident", incident.String())

	var fault *handlerFault
	if errors.As(err, &fault) && fault.stack != nil {
		event = event.Bytes("stack", fault.stack)
	}
	event.Msg("command failed")

	_, sendErr := d.sender.SendMessage(ctx, msg.Chat, FaultContent(err, incident.String()))
	if sendErr != nil {
		l.Warn().Err(sendErr).Msg("failed to send error report")
	}
}

// FaultContent formats a handler failure for the chat, as a bounded code block.
func FaultContent(err error, incident string) domain.Content {
	return domain.Content{
		Title:       "Command error",
		Description: domain.CodeBlock(err.Error()),
		Footer:      "incident " + incident,
	}
}
