package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/config"
	"github.com/parlor-chat/parlor/internal/history"
	"github.com/parlor-chat/parlor/internal/hub"
	"github.com/parlor-chat/parlor/internal/room"
	"github.com/parlor-chat/parlor/internal/server"
	"github.com/parlor-chat/parlor/internal/session"
)

func main() {
	cfg := config.Load()

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	persister := history.NewPersister(cfg.HistoryFile, logger)
	store := room.NewStore(cfg.RoomCodeLength, persister, logger)

	restored, err := persister.Restore()
	if err != nil {
		logger.Warn().Err(err).Msg("could not restore snapshot, starting empty")
	} else {
		store.Restore(restored)
	}

	broadcaster := hub.NewHub(store, hub.Limits{
		MaxMessageSize: cfg.MaxMessageSize,
		RateBurst:      cfg.RateLimit.Burst,
		RateRefill:     cfg.RateLimit.RefillInterval,
	}, logger)
	go broadcaster.Run()

	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	handler := server.NewHandler(store, broadcaster, sessions, cfg.AllowedOrigins, logger)
	router := server.NewRouter(handler, logger, cfg.AllowedOrigins)
	srv := server.CreateServer(cfg.Port, router)

	go func() {
		logger.Info().
			Str("addr", cfg.Port).
			Str("env", cfg.Env).
			Int("rooms", store.Count()).
			Msg("starting parlor server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down...")

	if err := server.ShutdownServer(srv, cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := broadcaster.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("hub shutdown")
	}

	logger.Info().Msg("server stopped")
}
