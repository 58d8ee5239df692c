package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/glowreach/reply-engine/internal/biz"
	"github.com/glowreach/reply-engine/internal/biz/usecase"
	"github.com/glowreach/reply-engine/internal/conf"
	"github.com/glowreach/reply-engine/internal/data"
	"github.com/glowreach/reply-engine/internal/server"
	"github.com/glowreach/reply-engine/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()
	setupLogging(cfg.Debug)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// Repository layer
	repos, err := data.NewRepositories(cfg.DBPath, cfg.Platform.BaseURL, cfg.ToLLMConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repositories")
	}
	defer repos.Close()
	log.Info().Str("db", cfg.DBPath).Msg("database opened")
	if repos.LLM == nil {
		log.Warn().Msg("no LLM configured, replies use deterministic fallbacks")
	}

	// Usecase layer
	memory := usecase.NewMemoryUsecase(repos.Conversation, repos.Message, repos.Context, repos.LLM, cfg.Memory.Retention())
	ucs := &biz.Usecases{
		Dedup:     usecase.NewDeduplicator(usecase.DefaultDedupCapacity),
		Matcher:   usecase.NewRuleMatcher(),
		Memory:    memory,
		Generator: usecase.NewGenerator(repos.LLM, memory, cfg.Replies.ToReplyPools(), cfg.ToGeneratorConfig()),
		Governor:  usecase.NewGovernor(cfg.Governor, usecase.NewRuntimeState()),
		Delivery:  usecase.NewDeliveryPipeline(repos.Publisher),
	}

	// Service layer
	queue := service.NewDelayQueue()
	automation := service.NewAutomationService(ucs.Dedup, repos.Account, repos.Rule, ucs.Matcher, ucs.Memory, ucs.Generator, ucs.Governor, ucs.Delivery, queue)
	sweeper := service.NewSweeper(ucs.Memory)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper")
	}
	publisher := service.NewScheduledPublisher(repos.Scheduled, repos.Account, ucs.Delivery)
	if err := publisher.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduled publisher")
	}

	// HTTP webhook server
	srv := server.NewWebhookServer(cfg.Webhook.VerifyToken, cfg.Webhook.AppSecret, automation, cfg.Debug)
	go func() {
		if err := srv.Start(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("webhook server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeper.Stop()
	publisher.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("webhook server shutdown")
	}
	if err := queue.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("delay queue shutdown")
	}
	log.Info().Msg("stopped")
}

func setupLogging(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}
