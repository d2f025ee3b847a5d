package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/tomoca-dev/Tomo-web/pkg/circuitbreaker"
	"github.com/tomoca-dev/Tomo-web/pkg/logger"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/bot"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/config"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/domain"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/events"
	bothttp "github.com/tomoca-dev/Tomo-web/telegram-bot/internal/http"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/repository"
	"github.com/tomoca-dev/Tomo-web/telegram-bot/internal/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{Service: "telegram-bot"})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Options{Service: "telegram-bot", Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to telegram")
	}

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open order store")
	}
	defer closeRepo()

	reg := metrics.New("tomoca_bot")
	opts := []bot.Option{
		bot.WithLogger(log),
		bot.WithMetrics(bot.NewMetrics(reg)),
		bot.WithAdminChat(cfg.AdminChatID),
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaOrderTopic, brokers...)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka writer")
			}
		}()
		opts = append(opts, bot.WithEventPublisher(publisher))
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaOrderTopic).Msg("order events enabled")
	}

	b := bot.New(api, repo, opts...)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      bothttp.NewRouter(bothttp.NewWebhookHandler(b, cfg.WebhookSecret), reg, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("telegram bot starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	if err := registerWebhook(api, cfg.WebhookURL()); err != nil {
		log.Error().Err(err).Msg("failed to set webhook")
	} else {
		log.Info().Msgf("Bot @%s webhook set to: %s", api.Self.UserName, cfg.WebhookURL())
	}
	log.Info().Str("deep_link_prefix", domain.DeepLink(cfg.BotUsername, "")).Msg("product deep links enabled")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func registerWebhook(api *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = api.Request(wh)
	return err
}

// openRepository prefers a direct Postgres connection when DATABASE_URL is
// set and falls back to the hosted Supabase REST API.
func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Repository, func(), error) {
	if cfg.DatabaseURL != "" {
		repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			_ = repo.Close()
			return nil, nil, err
		}
		log.Info().Msg("using postgres order store")
		return repo, func() { _ = repo.Close() }, nil
	}

	client, err := supabase.NewClient(supabase.Config{
		URL:        cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseKey,
		Timeout:    cfg.SupabaseTimeout,
		Breaker:    circuitbreaker.DefaultConfig(),
	}, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("url", cfg.SupabaseURL).Msg("using supabase order store")
	return repository.NewSupabaseRepository(client), func() {}, nil
}
