package commands

import (
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"errors"
	"fmt"
	"strings"
)

func Ping() command.Command {
	return command.Command{
		Name:     "ping",
		Category: CategoryBot,
		Help:     "Pings the bot.",
		Handler: func(ctx context.Context, c *command.Context) error {
			return c.Reply(ctx, "hi!")
		},
	}
}

const helpAllHint = "If you want to see all commands at once, run the same command again with argument `all`."

func Help(r *command.Registry) command.Command {
	return command.Command{
		Name:     "help",
		Category: CategoryBot,
		Help:     "Displays information about commands and their categories.",
		Usage:    "help [command|all]",
		Handler: func(ctx context.Context, c *command.Context) error {
			arg := strings.ToLower(strings.TrimSpace(c.Args))

			if arg == "" || arg == "all" {
				_, err := c.Send(ctx, commandList(r, arg == "all"))
				return err
			}

			cmd, err := r.Resolve(arg)
			if errors.Is(err, domain.ErrCommandNotFound) {
				return c.Reply(ctx, "no help for an unknown command.")
			}
			if err != nil {
				return err
			}

			_, err = c.Send(ctx, commandHelp(cmd))
			return err
		},
	}
}

func commandList(r *command.Registry, all bool) domain.Content {
	content := domain.Content{Title: "🛠 Command list"}

	var sb strings.Builder
	if !all {
		sb.WriteString(helpAllHint)
		sb.WriteString("\n\n")
	}

	if all {
		var names []string
		for _, cmd := range r.Commands() {
			names = append(names, commandNames(cmd)...)
		}
		fmt.Fprintf(&sb, "**Commands**\n%s\n", strings.Join(names, ", "))
	} else {
		for _, cat := range r.Categories() {
			var names []string
			for _, cmd := range cat.Commands {
				names = append(names, commandNames(cmd)...)
			}
			fmt.Fprintf(&sb, "**%s**\n%s\n", cat.Name, strings.Join(names, ", "))
		}
	}

	content.Description = domain.Truncate(strings.TrimSpace(sb.String()))

	return content
}

func commandNames(cmd *command.Command) []string {
	names := make([]string, 0, len(cmd.Aliases)+1)
	names = append(names, "`"+cmd.Name+"`")
	for _, a := range cmd.Aliases {
		names = append(names, "`"+a+"`")
	}
	return names
}

func commandHelp(cmd *command.Command) domain.Content {
	help := cmd.Help
	if help == "" {
		help = "no help provided."
	}

	var sb strings.Builder
	sb.WriteString(help)
	if cmd.Usage != "" {
		fmt.Fprintf(&sb, "\n\nUsage: `%s`", cmd.Usage)
	}
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(&sb, "\nAliases: %s", strings.Join(commandNames(cmd)[1:], ", "))
	}

	return domain.Content{
		Title:       fmt.Sprintf("ℹ Command help: `%s`", cmd.Name),
		Description: sb.String(),
	}
}

// List shows every command name page by page.
func List(r *command.Registry) command.Command {
	return command.Command{
		Name:     "commands",
		Category: CategoryBot,
		Help:     "Displays the list of available commands.",
		Handler: func(ctx context.Context, c *command.Context) error {
			cmds := r.Commands()
			names := make([]string, 0, len(cmds))
			for _, cmd := range cmds {
				names = append(names, cmd.Name)
			}

			return c.Paginate(ctx, names, listRenderer("Available commands", c.Message.Author.Name), 0)
		},
	}
}

// listRenderer numbers the visible items and shows the page position in the footer.
func listRenderer(title, author string) domain.Renderer {
	return func(p domain.Page) domain.Content {
		var sb strings.Builder
		for i, item := range p.Visible() {
			fmt.Fprintf(&sb, "%d. `%s`\n", p.Offset()+i+1, item)
		}

		return domain.Content{
			Title:       title,
			Author:      author,
			Description: sb.String(),
			Footer:      fmt.Sprintf("Page %d/%d (%d entries)", p.Current, p.Last, len(p.Items)),
		}
	}
}
