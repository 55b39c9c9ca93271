package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autoassist/backend/internal/ai"
	"github.com/autoassist/backend/internal/config"
	"github.com/autoassist/backend/internal/db"
	httpapi "github.com/autoassist/backend/internal/http"
	"github.com/autoassist/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "autoassist-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var oracle ai.Oracle
	if cfg.OracleURL == "" {
		oracle = ai.MockOracle{}
		logger.Info().Msg("using mock ranking oracle")
	} else {
		oracle = ai.GeminiOracle{
			BaseURL: cfg.OracleURL,
			APIKey:  cfg.OracleAPIKey,
			Client:  &http.Client{Timeout: cfg.OracleTimeout},
		}
	}

	engine := &service.Engine{
		Store:  store,
		Oracle: oracle,
		Logger: logger,
		Cap:    cfg.DailyCap,
	}

	router := httpapi.Router(cfg, store, engine, logger)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
