package command

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/port"
	"errors"
)

type HandlerFunc func(ctx context.Context, c *Context) error

// Command describes one invocable action. Values are copied on registration and never changed afterwards.
type Command struct {
	Name     string
	Aliases  []string
	Category string
	Help     string
	Usage    string

	GuildOnly   bool
	OwnerOnly   bool
	Permissions domain.Permission

	Handler HandlerFunc
	// PostRun runs after a successful Handler, outside of the dispatcher's failure boundary.
	PostRun func()
}

// Context is handed to a command handler for a single invocation.
type Context struct {
	Message *domain.Message
	Command *Command
	// Args is everything after the command token, unsplit.
	Args string

	Sender    port.MessageSender
	Paginator port.Paginator
}

// Reply sends a plain text answer into the chat the command came from.
func (c *Context) Reply(ctx context.Context, text string) error {
	_, err := c.Send(ctx, domain.TextContent(domain.Truncate(text)))
	return err
}

func (c *Context) Send(ctx context.Context, content domain.Content) (domain.MessageRef, error) {
	ref, err := c.Sender.SendMessage(ctx, c.Message.Chat, content)
	if err != nil {
		return domain.MessageRef{}, errors.Join(domain.ErrSendingReplyFailed, err)
	}

	return ref, nil
}

// Paginate presents items page by page, navigable by the invoking actor only. A pageSize of zero uses the default.
func (c *Context) Paginate(ctx context.Context, items []string, render domain.Renderer, pageSize int) error {
	return c.paginate(ctx, nil, items, render, pageSize)
}

// PaginateAt is Paginate, but turns the already sent message at anchor into the first page.
func (c *Context) PaginateAt(ctx context.Context, anchor domain.MessageRef, items []string, render domain.Renderer,
	pageSize int) error {
	return c.paginate(ctx, &anchor, items, render, pageSize)
}

func (c *Context) paginate(ctx context.Context, anchor *domain.MessageRef, items []string, render domain.Renderer,
	pageSize int) error {
	_, err := c.Paginator.Paginate(ctx, domain.PageRequest{
		Chat:     c.Message.Chat,
		Anchor:   anchor,
		Owner:    c.Message.Author,
		Items:    items,
		Render:   render,
		PageSize: pageSize,
	})

	return err
}
