package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/app"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	middleware.InitLogger(os.Getenv("LOG_LEVEL"), "hhh-classifier")
	log := middleware.Logger

	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	middleware.InitLogger(cfg.LogLevel, "hhh-classifier")
	log = middleware.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	go a.LoadSemantic(ctx)
	a.StartWorkers(ctx)

	srv := a.HTTP()
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := srv.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).
		Bool("semantic", a.Semantic.Enabled()).Msg("HHH classifier starting")
	if err := srv.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
