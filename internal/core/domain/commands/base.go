package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Shell runs a command line and returns its combined output.
type Shell func(ctx context.Context, line string) ([]byte, error)

// RunShell runs line through sh -c.
func RunShell(ctx context.Context, line string) ([]byte, error) {
	return exec.CommandContext(ctx, "sh", "-c", line).CombinedOutput()
}

const updateCommand = "git pull origin master"

// Base holds the owner commands that reach into the host.
type Base struct {
	shell Shell
	exit  func(code int)
}

func NewBase(shell Shell, exit func(int)) *Base {
	if shell == nil {
		shell = RunShell
	}
	if exit == nil {
		exit = os.Exit
	}

	return &Base{shell: shell, exit: exit}
}

func (b *Base) Exec() command.Command {
	return command.Command{
		Name:      "exec",
		Category:  CategoryBase,
		Help:      "Executes a command from the shell.",
		Usage:     "exec <command line>",
		OwnerOnly: true,
		Handler: func(ctx context.Context, c *command.Context) error {
			line := strings.TrimSpace(c.Args)
			if line == "" {
				return domain.ErrEmptyArgs
			}

			return b.run(ctx, c, line)
		},
	}
}

func (b *Base) Update() command.Command {
	return command.Command{
		Name:      "update",
		Category:  CategoryBase,
		Help:      "Updates the bot to the latest revision from its repository and quits it.",
		OwnerOnly: true,
		Handler: func(ctx context.Context, c *command.Context) error {
			if err := c.Reply(ctx, "Updating..."); err != nil {
				return err
			}

			return b.run(ctx, c, updateCommand)
		},
		PostRun: func() {
			log.Info().Msg("exiting after update")
			b.exit(0)
		},
	}
}

// run replies with the output of line. A failing command is reported in full, including its output.
func (b *Base) run(ctx context.Context, c *command.Context, line string) error {
	log.Info().Str("line", line).Str("actorId", c.Message.Author.ID).Msg("running shell command")

	out, err := b.shell(ctx, line)
	if err != nil {
		text := err.Error()
		if len(out) > 0 {
			text = string(out) + "\n" + text
		}
		_, sendErr := c.Send(ctx, domain.Content{
			Title:       "Shell error",
			Description: domain.CodeBlock(text),
		})
		return sendErr
	}

	result := strings.TrimSpace(string(out))
	if result == "" {
		result = "(no output)"
	}

	_, err = c.Send(ctx, domain.Content{
		Title:       "Shell result",
		Description: domain.CodeBlock(result),
	})

	return err
}
