package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sevenms-engine/config"
	"sevenms-engine/internal/ai/llm"
	"sevenms-engine/internal/api"
	"sevenms-engine/internal/database"
	"sevenms-engine/internal/engine"
	"sevenms-engine/internal/events"
	"sevenms-engine/internal/execution"
	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/notification"
	"sevenms-engine/internal/proposal"
	"sevenms-engine/internal/runner"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	samplePath := flag.String("generate-config", "", "write a sample config file and exit")
	flag.Parse()

	if *samplePath != "" {
		if err := config.GenerateSampleConfig(*samplePath); err != nil {
			fmt.Fprintf(os.Stderr, "generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Sample config written to %s\n", *samplePath)
		return
	}

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().
		Str("feed", cfg.FeedConfig.Provider).
		Str("execution", cfg.ExecutionConfig.Mode).
		Msg("Market structure engine starting")

	ctx := context.Background()
	eventBus := events.NewEventBus()

	// Notifications
	notifyManager := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("Telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("Discord notifications enabled")
		}
	}

	// Database, optional
	var db *database.DB
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
		repo = database.NewRepository(db)
	} else {
		logger.Info().Msg("Database disabled, runs will not be persisted")
	}

	// Redis proposal cache, optional
	var redisClient *redis.Client
	var cache *database.RedisProposalCache
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		cache = database.NewRedisProposalCache(redisClient, logger)
	}

	// Proposal gate, restored from whatever store is available
	var store proposal.Store
	if repo != nil || cache != nil {
		store = database.NewProposalStore(repo, cache, logger)
	}
	gate := proposal.NewGate(store, eventBus, logger)
	if restored, err := gate.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to restore pending proposals")
	} else if restored > 0 {
		logger.Info().Int("count", restored).Msg("Restored pending proposals")
	}

	// Data feed
	var provider feed.Provider
	switch cfg.FeedConfig.Provider {
	case "bridge":
		provider = feed.NewBridgeClient(feed.BridgeOptions{
			BaseURL:        cfg.BridgeConfig.BaseURL,
			RequestTimeout: time.Duration(cfg.BridgeConfig.RequestTimeoutSecs) * time.Second,
			RequestsPerSec: cfg.BridgeConfig.RequestsPerSec,
		}, logger)
	default:
		mock := feed.NewMockProvider()
		for symbol, spec := range cfg.ScheduleConfig.InstrumentSpecs {
			mock.SetInstrument(market.Instrument{
				Symbol:    symbol,
				PointSize: spec.PointSize,
				Digits:    spec.Digits,
				MinLot:    spec.MinLot,
				LotStep:   spec.LotStep,
			})
		}
		provider = mock
	}

	// Order executor
	var executor execution.Executor
	switch cfg.ExecutionConfig.Mode {
	case "bridge":
		executor = execution.NewBridgeExecutor(execution.BridgeExecutorOptions{
			BaseURL:        cfg.BridgeConfig.BaseURL,
			RequestTimeout: time.Duration(cfg.BridgeConfig.RequestTimeoutSecs) * time.Second,
			Magic:          cfg.ExecutionConfig.Magic,
		}, logger)
	default:
		executor = execution.NewPaperExecutor(cfg.ExecutionConfig.Equity, logger)
	}

	// Analysis engine
	eng := engine.NewEngine(engine.Config{
		SwingWindow:             cfg.AnalysisConfig.SwingWindow,
		SweepMinPoints:          cfg.AnalysisConfig.SweepMinPoints,
		TwoCandleRejection:      cfg.AnalysisConfig.TwoCandleRejection,
		ShiftLookahead:          cfg.AnalysisConfig.ShiftLookahead,
		MinDisplacementPoints:   cfg.AnalysisConfig.MinDisplacementPoints,
		DisplacementRangeFactor: cfg.AnalysisConfig.DisplacementRangeFactor,
		ZoneMode:                cfg.AnalysisConfig.ZoneMode,
		MinGapPercent:           cfg.AnalysisConfig.MinGapPercent,
		TrendFilter:             cfg.AnalysisConfig.TrendFilter,
		TrendTimeframe:          market.Timeframe(cfg.AnalysisConfig.TrendTimeframe),
		StopBufferPoints:        cfg.RiskConfig.StopBufferPoints,
		RiskPercent:             cfg.RiskConfig.RiskPercent,
		RewardMultiples:         cfg.RiskConfig.RewardMultiples,
		BarCount:                cfg.FeedConfig.BarCount,
	}, provider, gate, logger)

	// LLM narrator, optional
	var narrator *llm.Narrator
	if cfg.AIConfig.Enabled {
		client := llm.NewClient(&llm.ClientConfig{
			Provider:    llm.Provider(cfg.AIConfig.LLMProvider),
			APIKey:      cfg.AIConfig.LLMAPIKey(),
			Model:       cfg.AIConfig.LLMModel,
			MaxTokens:   cfg.AIConfig.MaxTokens,
			Temperature: cfg.AIConfig.Temperature,
		})
		narrator = llm.NewNarrator(client, logger)
		if narrator.Enabled() {
			logger.Info().Str("provider", cfg.AIConfig.LLMProvider).Msg("Run narration enabled")
		} else {
			logger.Warn().Msg("AI enabled but no API key configured, narration disabled")
		}
	}

	// Runner
	schedules := make(map[market.Timeframe]string, len(cfg.ScheduleConfig.Timeframes))
	for code, spec := range cfg.ScheduleConfig.Timeframes {
		tf, err := market.ParseTimeframe(code)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid schedule timeframe")
		}
		schedules[tf] = spec
	}
	specs := make(map[string]market.Instrument, len(cfg.ScheduleConfig.InstrumentSpecs))
	for symbol, spec := range cfg.ScheduleConfig.InstrumentSpecs {
		specs[symbol] = market.Instrument{
			Symbol:    symbol,
			PointSize: spec.PointSize,
			Digits:    spec.Digits,
			MinLot:    spec.MinLot,
			LotStep:   spec.LotStep,
		}
	}

	run := runner.NewRunner(runner.Config{
		Instruments:     cfg.ScheduleConfig.Instruments,
		Schedules:       schedules,
		DefaultEquity:   cfg.ExecutionConfig.Equity,
		InstrumentSpecs: specs,
	}, eng, gate, provider, executor, eventBus, logger)
	if repo != nil {
		run.SetRepository(repo)
	}
	if cfg.NotificationConfig.Enabled {
		run.SetNotifier(notifyManager)
	}
	if narrator != nil {
		run.SetNarrator(narrator)
	}

	// HTTP API
	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		ProductionMode: cfg.ServerConfig.ProductionMode,
	}, repo, gate, eventBus, run, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if err := run.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start runner")
	}

	logger.Info().
		Str("addr", fmt.Sprintf("http://%s:%d", cfg.ServerConfig.Host, cfg.ServerConfig.Port)).
		Msg("Engine running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	run.Stop()

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info().Msg("Shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
