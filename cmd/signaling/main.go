package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossy-p/flowsync-signaling/config"
	"github.com/mossy-p/flowsync-signaling/internal/events"
	"github.com/mossy-p/flowsync-signaling/internal/handlers"
	"github.com/mossy-p/flowsync-signaling/internal/redis"
	"github.com/mossy-p/flowsync-signaling/internal/signaling"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := redis.Connect(connectCtx, cfg.Redis)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	store := redis.NewStore(client)
	log.Info().Str("host", cfg.Redis.Host).Msg("Redis connection established")

	// Presence feed is optional
	var publisher signaling.Publisher = events.Nop{}
	var feed *events.NATSPublisher
	if cfg.NATS.URL != "" {
		natsCfg := events.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		feed, err = events.NewNATSPublisher(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		publisher = feed
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("presence feed enabled")
	}

	hub := handlers.NewHub(handlers.ConnectionConfig{
		WriteTimeout:    cfg.WebSocket.WriteTimeout,
		ReadTimeout:     cfg.WebSocket.ReadTimeout,
		PingInterval:    cfg.WebSocket.PingInterval,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  cfg.AllowedOrigins,
	})

	controller := signaling.NewController(signaling.Config{
		TokenCheckTimeout: cfg.Signaling.TokenCheckTimeout,
		StoreWriteTimeout: cfg.Signaling.StoreWriteTimeout,
	}, signaling.Dependencies{
		Tokens:    store,
		Mirror:    store,
		Publisher: publisher,
		Emitter:   hub,
	})

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      cfg.JWTSecret,
		Hub:            hub,
		Controller:     controller,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewCORS(cfg.AllowedOrigins).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting signaling server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stop accepting requests, then drain live sockets so every room
		// sees its participants leave before the store goes away.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		if err := hub.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Int64("connections", hub.ActiveConnections()).Msg("connections did not drain")
		}
		if feed != nil {
			if err := feed.Close(); err != nil {
				log.Error().Err(err).Msg("failed to drain NATS connection")
			}
		}
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close Redis client")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("signaling server failed")
	}

	log.Info().
		Int64("total_connections", hub.TotalConnections()).
		Msg("signaling server stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
