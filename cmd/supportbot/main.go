package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"supportbot/internal/brand"
	"supportbot/internal/bus"
	"supportbot/internal/channel"
	"supportbot/internal/config"
	"supportbot/internal/domain"
	"supportbot/internal/logbook"
	"supportbot/internal/metrics"
	"supportbot/internal/model"
	"supportbot/internal/moderation"
	"supportbot/internal/pipeline"
	"supportbot/internal/redact"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "supportbot",
		Short: "Brand-grounded support assistant for Discord and Telegram",
		Long:  "Supportbot watches a product-questions channel, answers with Gemini grounded in your brand document, and routes every answer through a moderator queue.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.supportbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(daemonCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			dataDir := config.ExpandPath(cfg.General.DataDir)
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "data", dataDir)
			logger.Info("next: set DISCORD_TOKEN and GEMINI_API_KEY, write your brand document", "brand", cfg.Brand.InfoPath)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [today|7d|all]",
		Short: "Print interaction stats from the log",
		Long:  "Aggregates the interaction log and prints counts, average latency, and top question categories. Reads the log without touching it, so it is safe against a running bot.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			var since time.Time
			window := "all"
			if len(args) > 0 {
				window = strings.ToLower(args[0])
			}
			switch window {
			case "today":
				now := time.Now()
				since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			case "7d":
				since = time.Now().Add(-7 * 24 * time.Hour)
			case "all":
			default:
				return fmt.Errorf("unknown window %q (use today, 7d, or all)", args[0])
			}

			stats, err := logbook.ReadStats(cfg.Logbook.Path, since)
			if err != nil {
				return err
			}

			fmt.Printf("Interactions (%s): %d\n", window, stats.Total)
			fmt.Printf("  success %d, blocked %d, fallback %d, errors %d\n",
				stats.Success, stats.Blocked, stats.Fallbacks, stats.Errors)
			if stats.AvgLatencyMs > 0 {
				fmt.Printf("  avg latency %.0f ms\n", stats.AvgLatencyMs)
			}
			for _, c := range stats.TopCategories {
				fmt.Printf("  %-16s %d\n", c.Category, c.Count)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("supportbot v%s\n", version)
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the bot (gateways + answer pipeline)",
		Long:  "Connects the enabled chat gateways, loads the brand document, and runs the answer pipeline. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

// setupLogger rebuilds the process logger from config.
func setupLogger(cfg *config.Config) error {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		out = f
	}
	logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	events := bus.NewEventBus(logger)

	redactor := redact.New()
	if cfg.Redaction.RulesPath != "" {
		if err := redactor.LoadRules(config.ExpandPath(cfg.Redaction.RulesPath)); err != nil {
			return fmt.Errorf("redaction rules: %w", err)
		}
	}

	brandStore, err := brand.NewStore(cfg.Brand.InfoPath, cfg.Brand.MaxChars)
	if err != nil {
		return fmt.Errorf("brand store: %w", err)
	}
	logger.Info("brand document loaded",
		"path", cfg.Brand.InfoPath,
		"chars", len(brandStore.Current().Text),
	)

	provider, err := model.NewGeminiProvider(ctx, cfg.Model.APIKey, cfg.Model.Temperature, cfg.Model.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("model provider: %w", err)
	}
	limiter := model.NewRateLimiter(5, float64(cfg.Model.RateLimitPerMin))
	cascade := model.NewCascade(provider, cfg.Model.Preferred, limiter, cfg.Model.MaxRetries, logger)
	cascade.OnFallback = func(modelID string) {
		events.Emit(bus.Event{Type: bus.EventModelFallback, Source: modelID})
	}

	// Fail closed: refusing to start beats answering customers with no
	// eligible model.
	if _, err := cascade.Refresh(ctx); err != nil {
		return fmt.Errorf("model selection: %w", err)
	}

	interactionLog, err := logbook.New(cfg.Logbook.Path)
	if err != nil {
		return fmt.Errorf("interaction log: %w", err)
	}
	defer interactionLog.Close()

	modStore, err := moderation.NewStore(cfg.Moderation.DBPath, logger)
	if err != nil {
		return fmt.Errorf("moderation store: %w", err)
	}
	defer modStore.Close()

	var discordCh *channel.Discord
	if cfg.Channels.Discord.Enabled {
		discordCh = channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
			OnReady: func() {
				// Async keeps slow subscribers off discordgo's event goroutine.
				events.EmitAsync(bus.Event{Type: bus.EventGatewayReady, Source: "discord"})
			},
		})
	}

	resolve := func(gateway, name string) (string, bool) {
		if gateway == "discord" && discordCh != nil {
			return discordCh.ChannelIDByName(name)
		}
		return "", false
	}

	pipe := pipeline.New(pipeline.Config{
		TargetChannel:     cfg.Channels.Discord.TargetChannel,
		ModeratorChannel:  cfg.Channels.Discord.ModeratorChannel,
		AutoPost:          cfg.Pipeline.AutoPost,
		MinQuestionLength: cfg.Pipeline.MinQuestionLength,
		MaxQuestionChars:  cfg.Pipeline.MaxQuestionChars,
		Concurrency:       cfg.Pipeline.MaxConcurrentMessages,
	}, pipeline.Deps{
		Bus:      messageBus,
		Events:   events,
		Redactor: redactor,
		Brand:    brandStore,
		Prompt:   pipeline.NewPromptBuilder(cfg.Brand.Name, cfg.Brand.Tone),
		Answerer: cascade,
		Recorder: interactionLog,
		Queue:    modStore,
		Resolve:  resolve,
		Logger:   logger,
	})
	go pipe.Run(ctx)

	if cfg.Brand.AutoReload {
		watcher, err := brand.NewWatcher(brandStore, logger, func() {
			events.Emit(bus.Event{Type: bus.EventContextReloaded, Source: "watcher"})
		})
		if err != nil {
			logger.Warn("brand auto-reload unavailable", "err", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Endpoint)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var channels []domain.Channel
	if discordCh != nil {
		channels = append(channels, discordCh)
		logger.Info("discord channel enabled",
			"target", cfg.Channels.Discord.TargetChannel,
			"moderator", cfg.Channels.Discord.ModeratorChannel,
		)
	} else {
		logger.Info("discord channel disabled")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		}))
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	for _, ch := range channels {
		go func(ch domain.Channel) {
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
			}
		}(ch)
	}

	logger.Info("supportbot started. Press Ctrl+C to stop.", "auto_post", cfg.Pipeline.AutoPost)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down...")

	// Graceful shutdown with timeout
	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			if err := ch.Stop(); err != nil {
				logger.Warn("channel stop error", "channel", ch.Name(), "err", err)
			}
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}

	return shutdownErr
}
