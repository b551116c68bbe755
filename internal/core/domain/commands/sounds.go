package commands

import (
	"cmp"
	"context"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"csbot/internal/core/port"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	notLoaded       = "sound list hasn't loaded yet."
	suggestion      = "were you looking for these chatsounds?"
	suggestPageSize = 5
)

// pick returns a random index in [0, n).
var pick = rand.IntN

var variantSuffix = regexp.MustCompile(`#(\d+)$`)

func Search(sounds port.SoundIndex) command.Command {
	return command.Command{
		Name:     "search",
		Aliases:  []string{"s"},
		Category: CategorySounds,
		Help:     "Searches chatsounds by name.",
		Usage:    "search <query>",
		Handler: func(ctx context.Context, c *command.Context) error {
			return searchSounds(ctx, c, sounds, c.Args)
		},
	}
}

func searchSounds(ctx context.Context, c *command.Context, sounds port.SoundIndex, query string) error {
	if !sounds.Loaded() {
		return c.Reply(ctx, notLoaded)
	}

	results := matchSounds(sounds.Names(), query)
	if len(results) == 0 {
		return c.Reply(ctx, "no chatsounds found.")
	}

	return c.Paginate(ctx, results, listRenderer("Chatsound search results:", c.Message.Author.Name), 0)
}

// matchSounds returns the names containing query, shortest first and then in dictionary order.
func matchSounds(names []string, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))

	var results []string
	for _, name := range names {
		if strings.Contains(strings.ToLower(strings.TrimSpace(name)), query) {
			results = append(results, name)
		}
	}

	slices.SortFunc(results, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(a), len(b)), strings.Compare(a, b))
	})

	return results
}

func Play(sounds port.SoundIndex) command.Command {
	return command.Command{
		Name:     "play",
		Aliases:  []string{"p"},
		Category: CategorySounds,
		Help:     "Looks up a chatsound from the repository. Append `#n` to pick a variant, or use `random`.",
		Usage:    "play <name[#n]|random>",
		Handler: func(ctx context.Context, c *command.Context) error {
			if !sounds.Loaded() {
				return c.Reply(ctx, notLoaded)
			}

			line := strings.ToLower(strings.TrimSpace(c.Args))
			if line == "" {
				return c.Reply(ctx, "usage: "+c.Command.Usage)
			}

			sound, ok := resolveSound(sounds, line)
			if !ok {
				return suggestSounds(ctx, c, sounds, variantSuffix.ReplaceAllString(line, ""))
			}

			url := sounds.URL(sound)
			_, err := c.Send(ctx, domain.Content{
				Title:       "🔊 " + sound.Name,
				URL:         url,
				Description: url,
			})

			return err
		},
	}
}

// suggestSounds answers an unknown name and then turns that answer into a short list of close matches.
func suggestSounds(ctx context.Context, c *command.Context, sounds port.SoundIndex, query string) error {
	ref, err := c.Send(ctx, domain.TextContent(suggestion))
	if err != nil {
		return err
	}

	results := matchSounds(sounds.Names(), query)
	if len(results) == 0 {
		return c.Reply(ctx, "no chatsounds found.")
	}

	return c.PaginateAt(ctx, ref, results, listRenderer(suggestion, c.Message.Author.Name), suggestPageSize)
}

// resolveSound finds the variant named by line. A "#n" suffix selects the n-th variant, clamped to the available
// ones; otherwise a variant is picked at random.
func resolveSound(sounds port.SoundIndex, line string) (domain.Sound, bool) {
	if line == "random" {
		names := sounds.Names()
		if len(names) == 0 {
			return domain.Sound{}, false
		}
		line = names[pick(len(names))]
	}

	num := -1
	if m := variantSuffix.FindStringSubmatch(line); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			num = n
		}
		line = variantSuffix.ReplaceAllString(line, "")
	}

	variants, ok := sounds.Variants(line)
	if !ok || len(variants) == 0 {
		return domain.Sound{}, false
	}

	if num < 0 {
		return variants[pick(len(variants))], true
	}

	return variants[min(max(num-1, 0), len(variants)-1)], true
}
