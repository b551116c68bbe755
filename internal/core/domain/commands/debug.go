package commands

import (
	"context"
	"csbot/internal/core/domain/command"
	"fmt"
	"runtime"
	"runtime/debug"
	"runtime/metrics"

	"github.com/rs/zerolog/log"
)

const kb = 1024
const debugTemplate = `allocated mem: %d KB
goroutines running: %d
heap: %d KB
stack: %d KB
compiled with %s for %s-%s
`
const metricCount = 3

func Debug() command.Command {
	return command.Command{
		Name:      "debug",
		Category:  CategoryBase,
		Help:      "Shows runtime statistics of the bot.",
		OwnerOnly: true,
		Handler: func(ctx context.Context, c *command.Context) error {
			return c.Reply(ctx, "```\n"+runtimeStats()+"```")
		},
	}
}

func runtimeStats() string {
	data := make([]metrics.Sample, metricCount)
	data[0] = metrics.Sample{Name: "/memory/classes/heap/objects:bytes"}
	data[1] = metrics.Sample{Name: "/memory/classes/heap/stacks:bytes"}
	data[2] = metrics.Sample{Name: "/memory/classes/total:bytes"}

	metrics.Read(data)

	for _, sample := range data {
		log.Debug().Str("name", sample.Name).Msgf("%d", sample.Value.Uint64())
	}

	var goos, goarch string
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "GOOS":
				goos = setting.Value
			case "GOARCH":
				goarch = setting.Value
			}
		}
	}
	if goos == "" {
		goos, goarch = runtime.GOOS, runtime.GOARCH
	}

	return fmt.Sprintf(
		debugTemplate,
		data[2].Value.Uint64()/kb,
		runtime.NumGoroutine(),
		data[0].Value.Uint64()/kb,
		data[1].Value.Uint64()/kb,
		runtime.Version(), goos, goarch,
	)
}
