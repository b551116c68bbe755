package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent  []domain.Content
	pages []domain.PageRequest
}

func (r *recorder) SendMessage(_ context.Context, chat domain.Chat, content domain.Content) (domain.MessageRef, error) {
	r.sent = append(r.sent, content)
	return domain.MessageRef{ChatID: chat.ID, MessageID: "1"}, nil
}

func (r *recorder) EditMessage(context.Context, domain.MessageRef, domain.Content) error {
	return nil
}

func (r *recorder) Paginate(_ context.Context, req domain.PageRequest) (domain.MessageRef, error) {
	r.pages = append(r.pages, req)
	return domain.MessageRef{ChatID: req.Chat.ID, MessageID: "2"}, nil
}

// firstPage renders the first page of the idx-th pagination request.
func (r *recorder) firstPage(t *testing.T, idx int) domain.Content {
	t.Helper()
	require.Greater(t, len(r.pages), idx)

	req := r.pages[idx]
	size := req.PageSize
	if size == 0 {
		size = 10
	}

	return req.Render(domain.Page{Items: req.Items, Current: 1, Last: domain.LastPage(len(req.Items), size), Size: size})
}

var (
	guild  = domain.Chat{ID: "chan", Kind: domain.Group, GuildID: "g"}
	author = domain.Actor{ID: "u", Name: "alice"}
)

// run invokes cmd the way the dispatcher does and returns the recorded output.
func run(t *testing.T, cmd command.Command, args string) (*recorder, error) {
	t.Helper()

	rec := &recorder{}
	c := &command.Context{
		Message:   &domain.Message{ID: "m", Chat: guild, Author: author, Text: "!" + cmd.Name + " " + args},
		Command:   &cmd,
		Args:      args,
		Sender:    rec,
		Paginator: rec,
	}

	return rec, cmd.Handler(t.Context(), c)
}

func texts(contents []domain.Content) []string {
	out := make([]string, len(contents))
	for i, c := range contents {
		out[i] = c.Description
	}
	return out
}
