package main

import (
	"context"
	"csbot/internal/adapters/feed"
	"csbot/internal/adapters/generator"
	"csbot/internal/adapters/handler"
	"csbot/internal/adapters/metrics"
	"csbot/internal/adapters/sender"
	"csbot/internal/adapters/sounds"
	"csbot/internal/adapters/store"
	"csbot/internal/core/domain"
	"csbot/internal/core/domain/command"
	"csbot/internal/core/domain/commands"
	"csbot/internal/core/port"
	"csbot/internal/core/service"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

// platformSender is what the core needs from a chat platform.
type platformSender interface {
	port.PageSender
	port.PermissionResolver
}

type platform struct {
	name   string
	sender platformSender
	// start registers the inbound handlers and blocks until ctx is done.
	start func(ctx context.Context, d handler.Dispatcher, n handler.Navigator) error
}

func main() {
	log.Info().Msg("starting csbot...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Info().Msg("reading config file...")
	if err := loadConfig(); err != nil {
		log.Fatal().Err(err).Msg("could not read config file")
	}

	setupLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("bot stopped")
		cancel()
		os.Exit(1)
	}

	log.Info().Msg("bot stopped")
}

func loadConfig() error {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.SetEnvPrefix("CSBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("bot.platform", "telegram")
	viper.SetDefault("bot.prefix", "!")
	viper.SetDefault("bot.owner_ids", []string{})
	viper.SetDefault("bot.log_level", "info")
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("discord.bot_token", "")
	viper.SetDefault("handler.timeout", "30s")
	viper.SetDefault("pagination.page_size", service.DefaultPageSize)
	viper.SetDefault("pagination.timeout", service.DefaultPageTimeout.String())
	viper.SetDefault("limiter.rate", 0)
	viper.SetDefault("limiter.burst", 3)
	viper.SetDefault("limiter.idle", "10m")
	viper.SetDefault("sounds.list_url", "")
	viper.SetDefault("sounds.repo_url", sounds.DefaultRepoURL)
	viper.SetDefault("rss.database", "feeds.db")
	viper.SetDefault("rss.interval", service.DefaultFeedInterval.String())
	viper.SetDefault("rss.workers", service.DefaultFeedWorkers)
	viper.SetDefault("rss.timeout", feed.DefaultTimeout.String())
	viper.SetDefault("openrouter.api_key", "")
	viper.SetDefault("openrouter.model", "openai/gpt-4.1-mini")
	viper.SetDefault("chat.system_prompt", "")
	viper.SetDefault("metrics.listen", "")
	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 10)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)
	viper.SetDefault("log.compress", false)

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		log.Warn().Msg("no config file found, using defaults and environment")
		return nil
	}

	return err
}

func setupLogging() {
	level, err := zerolog.ParseLevel(viper.GetString("bot.log_level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}}

	if path := viper.GetString("log.file"); path != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    viper.GetInt("log.max_size_mb"),
			MaxBackups: viper.GetInt("log.max_backups"),
			MaxAge:     viper.GetInt("log.max_age_days"),
			Compress:   viper.GetBool("log.compress"),
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func run(ctx context.Context) error {
	p, err := newPlatform(viper.GetString("bot.platform"))
	if err != nil {
		return err
	}

	var observer port.Observer = port.NopObserver{}
	var metricsObserver *metrics.Observer
	if viper.GetString("metrics.listen") != "" {
		metricsObserver = metrics.NewObserver()
		observer = metricsObserver
	}

	pager := service.NewPager(service.PagerParams{
		Sender:   p.sender,
		Clock:    clockwork.NewRealClock(),
		Timeout:  viper.GetDuration("pagination.timeout"),
		PageSize: viper.GetInt("pagination.page_size"),
		Observer: observer,
	})
	defer pager.Close()

	authorizer, err := service.NewAuthorizer()
	if err != nil {
		return fmt.Errorf("failed initializing authorizer: %w", err)
	}

	feedStore, err := store.Open(ctx, viper.GetString("rss.database"))
	if err != nil {
		return fmt.Errorf("failed opening feed database: %w", err)
	}
	defer func() {
		if err := feedStore.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close feed database")
		}
	}()

	feeds := service.NewFeedService(service.FeedServiceParams{
		Store:    feedStore,
		Parser:   feed.NewParser(viper.GetDuration("rss.timeout")),
		Sender:   p.sender,
		Clock:    clockwork.NewRealClock(),
		Interval: viper.GetDuration("rss.interval"),
		Workers:  viper.GetInt("rss.workers"),
	})

	index := sounds.NewIndex(viper.GetString("sounds.list_url"), viper.GetString("sounds.repo_url"))

	var textGenerator port.TextGenerator
	if key := viper.GetString("openrouter.api_key"); key != "" {
		textGenerator = generator.NewOpenRouterGenerator(key, viper.GetString("openrouter.model"),
			viper.GetString("chat.system_prompt"))
	}

	registry := &command.Registry{}
	commands.DefineCategories(registry)

	err = registry.RegisterAll(commands.All(commands.Deps{
		Registry:  registry,
		Sounds:    index,
		Feeds:     feeds,
		Generator: textGenerator,
		Shell:     commands.RunShell,
		Exit:      os.Exit,
	})...)
	if errors.Is(err, domain.ErrDuplicateName) {
		log.Fatal().Err(err).Msg("conflicting command names")
	} else if err != nil {
		return fmt.Errorf("failed registering commands: %w", err)
	}

	var limiter service.RateLimiter
	if perMinute := viper.GetFloat64("limiter.rate"); perMinute > 0 {
		limiter = service.NewLimiter(ctx, clockwork.NewRealClock(), perMinute, viper.GetInt("limiter.burst"),
			viper.GetDuration("limiter.idle"))
	}

	dispatcher := service.NewDispatcher(service.DispatcherParams{
		Prefix:      viper.GetString("bot.prefix"),
		Registry:    registry,
		Policy:      authorizer,
		Sender:      p.sender,
		Paginator:   pager,
		Permissions: p.sender,
		Limiter:     limiter,
		Observer:    observer,
		Timeout:     viper.GetDuration("handler.timeout"),
	})

	log.Info().Str("platform", p.name).Int("commands", len(registry.Commands())).Msg("bot configured")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.start(gctx, dispatcher, pager)
	})

	g.Go(func() error {
		return feeds.Run(gctx)
	})

	g.Go(func() error {
		if err := index.Load(gctx); err != nil {
			log.Warn().Err(err).Msg("sound list not loaded, sound commands are unavailable")
		}
		return nil
	})

	if metricsObserver != nil {
		g.Go(func() error {
			return metricsObserver.Serve(gctx, viper.GetString("metrics.listen"))
		})
	}

	return g.Wait()
}

func newPlatform(name string) (*platform, error) {
	switch name {
	case "telegram":
		return telegramPlatform(viper.GetString("telegram.bot_token"))
	case "discord":
		return discordPlatform(viper.GetString("discord.bot_token"))
	default:
		return nil, fmt.Errorf("unknown platform %q", name)
	}
}

func telegramPlatform(token string) (*platform, error) {
	b, err := bot.New(token, bot.WithDefaultHandler(noOpHandler))
	if err != nil {
		return nil, fmt.Errorf("failed initializing telegram bot: %w", err)
	}

	return &platform{
		name:   "telegram",
		sender: sender.NewTelegramSender(b),
		start: func(ctx context.Context, d handler.Dispatcher, n handler.Navigator) error {
			h := handler.NewTelegram(d, n, b)
			prefix := viper.GetString("bot.prefix")

			b.RegisterHandler(bot.HandlerTypeMessageText, prefix, bot.MatchTypePrefix, h.HandleMessage)
			b.RegisterHandler(bot.HandlerTypePhotoCaption, prefix, bot.MatchTypePrefix, h.HandleMessage)
			b.RegisterHandler(bot.HandlerTypeCallbackQueryData, sender.CallbackPrefix, bot.MatchTypePrefix,
				h.HandleCallback)

			log.Info().Msg("bot listening")
			b.Start(ctx)

			return nil
		},
	}, nil
}

func discordPlatform(token string) (*platform, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed initializing discord session: %w", err)
	}

	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent

	ds := sender.NewDiscordSender(s)

	return &platform{
		name:   "discord",
		sender: ds,
		start: func(ctx context.Context, d handler.Dispatcher, n handler.Navigator) error {
			h := handler.NewDiscord(ctx, d, n, ds, sender.ReactionDirection)
			s.AddHandler(h.OnMessageCreate)
			s.AddHandler(h.OnMessageReactionAdd)

			if err := s.Open(); err != nil {
				return fmt.Errorf("failed opening discord session: %w", err)
			}

			log.Info().Msg("bot listening")
			<-ctx.Done()

			return s.Close()
		},
	}, nil
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}
