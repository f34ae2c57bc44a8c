// File: cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-style-bot/internal/application"
	"telegram-style-bot/internal/config"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/domain/ports/repository"
	aiAdapters "telegram-style-bot/internal/infra/adapters/ai"
	payAdapters "telegram-style-bot/internal/infra/adapters/payment"
	tele "telegram-style-bot/internal/infra/adapters/telegram"
	pg "telegram-style-bot/internal/infra/db/postgres"
	httpapi "telegram-style-bot/internal/infra/http"
	"telegram-style-bot/internal/infra/logging"
	"telegram-style-bot/internal/infra/memory"
	"telegram-style-bot/internal/infra/metrics"
	red "telegram-style-bot/internal/infra/redis"
	"telegram-style-bot/internal/infra/worker"
	"telegram-style-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI and payment backends)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		println("config:", err.Error())
		os.Exit(1)
	}

	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		log.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	var sessions repository.SessionStore
	if cfg.Runtime.Dev {
		sessions = memory.NewSessionStore()
	} else {
		sessions = red.NewSessionStore(redisClient, cfg.Redis.SessionTTL)
	}

	// ---- Repositories and use cases ----
	userRepo := pg.NewPostgresUserRepo(pool)
	userUC := usecase.NewUserUseCase(userRepo, cfg.Pricing.WelcomeTokens, log)
	ledgerUC := usecase.NewLedgerUseCase(userRepo, log)
	convUC := usecase.NewConversationUseCase(sessions, log)

	// ---- Background workers ----
	registry := worker.NewRegistry(log)
	registry.Start(ctx)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev {
		gateway = payAdapters.NewNoopPaymentGateway()
		log.Warn().Msg("payment gateway: noop")
	} else {
		gateway, err = payAdapters.NewYooKassaGateway(cfg.Payment.YooKassa.ShopID, cfg.Payment.YooKassa.SecretKey, cfg.Payment.YooKassa.ReturnURL)
		if err != nil {
			log.Fatal().Err(err).Msg("yookassa gateway")
		}
	}

	tracker := usecase.NewPaymentTracker(gateway, ledgerUC, nil, registry, usecase.TrackerOptions{
		PollInterval: cfg.Tracker.PollInterval,
		MaxAttempts:  cfg.Tracker.MaxAttempts,
		Retention:    cfg.Tracker.Retention,
	}, log)

	// ---- AI adapter (Gemini -> OpenAI -> noop in dev) ----
	var images adapter.ImageTransformAdapter
	switch {
	case cfg.AI.GeminiKey != "":
		images, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini adapter")
		}
		log.Info().Str("model", cfg.AI.Model).Msg("image adapter: gemini")
	case cfg.AI.OpenAIKey != "":
		images, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, "")
		if err != nil {
			log.Fatal().Err(err).Msg("openai adapter")
		}
		log.Info().Msg("image adapter: openai")
	case cfg.Runtime.Dev:
		images = aiAdapters.NewNoopImageAdapter()
		log.Warn().Msg("image adapter: noop")
	default:
		log.Fatal().Msg("no AI provider configured: set ai.gemini_key or ai.openai_key")
	}

	// ---- Telegram ----
	botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, rateLimiter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	tracker.SetNotifier(botAdapter)

	transUC := usecase.NewTransformUseCase(ledgerUC, botAdapter, images, log)
	facade := application.NewBotFacade(userUC, ledgerUC, convUC, transUC, tracker, cfg.Pricing.Packs)
	botAdapter.SetFacade(facade)

	go func() {
		if err := botAdapter.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Expired intent sweeper ----
	if err := registry.Go("intent-sweeper", func(ctx context.Context) error {
		return tracker.RunSweeper(ctx, cfg.Tracker.SweepInterval)
	}); err != nil {
		log.Fatal().Err(err).Msg("sweeper")
	}

	// ---- Ops server ----
	srv := httpapi.NewServer(cfg, userUC, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutdown requested")

	botAdapter.StopPolling()
	registry.Stop(10 * time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown")
	}
	cancel()
}
