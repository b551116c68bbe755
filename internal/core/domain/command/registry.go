package command

import (
	"csbot/internal/core/domain"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type Category struct {
	Key      string
	Name     string
	Commands []*Command
}

// Registry maps every command name and alias to its command. It is filled once at startup and only read afterwards.
type Registry struct {
	commands   map[string]*Command
	names      map[string]string
	byKey      map[string]*Category
	categories []*Category
	ordered    []*Command
}

func (r *Registry) init() {
	if r.commands == nil {
		r.commands = make(map[string]*Command)
		r.names = make(map[string]string)
		r.byKey = make(map[string]*Category)
	}
}

// DefineCategory sets the display name used for a category key. Categories are still created on first use.
func (r *Registry) DefineCategory(key, name string) {
	r.init()
	r.names[key] = name

	if c, ok := r.byKey[key]; ok {
		c.Name = name
	}
}

func (r *Registry) Register(cmd Command) error {
	r.init()

	name := normalize(cmd.Name)
	if name == "" {
		return errors.New("command without a name")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", name)
	}

	keys := make([]string, 0, len(cmd.Aliases)+1)
	keys = append(keys, name)
	for _, a := range cmd.Aliases {
		keys = append(keys, normalize(a))
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			return fmt.Errorf("command %q has an empty alias", name)
		}
		if _, ok := seen[k]; ok {
			return fmt.Errorf("%q is listed twice by command %q: %w", k, name, domain.ErrDuplicateName)
		}
		if other, ok := r.commands[k]; ok {
			return fmt.Errorf("%q of command %q collides with command %q: %w", k, name, other.Name, domain.ErrDuplicateName)
		}
		seen[k] = struct{}{}
	}

	c := cmd
	c.Name = name
	c.Aliases = append([]string(nil), keys[1:]...)

	for _, k := range keys {
		r.commands[k] = &c
	}
	r.ordered = append(r.ordered, &c)

	category, ok := r.byKey[c.Category]
	if !ok {
		display, named := r.names[c.Category]
		if !named {
			display = c.Category
		}
		category = &Category{Key: c.Category, Name: display}
		r.byKey[c.Category] = category
		r.categories = append(r.categories, category)
	}
	category.Commands = append(category.Commands, &c)

	log.Info().Str("command", c.Name).Strs("aliases", c.Aliases).Str("category", c.Category).
		Msg("adding command to registry")

	return nil
}

// RegisterAll registers commands in order and stops at the first failure.
func (r *Registry) RegisterAll(cmds ...Command) error {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}

	return nil
}

// Resolve looks up a command by name or alias, ignoring case.
func (r *Registry) Resolve(token string) (*Command, error) {
	log.Trace().Str("token", token).Msg("resolving command")

	cmd, ok := r.commands[normalize(token)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", token, domain.ErrCommandNotFound)
	}

	return cmd, nil
}

// Categories returns the categories in registration order, each listing its commands in registration order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.categories))
	for i, c := range r.categories {
		out[i] = Category{
			Key:      c.Key,
			Name:     c.Name,
			Commands: append([]*Command(nil), c.Commands...),
		}
	}

	return out
}

// Commands returns every command once, in registration order.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.ordered...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
