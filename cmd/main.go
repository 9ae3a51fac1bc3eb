package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"discord-server-status/config"
	"discord-server-status/discord"
	"discord-server-status/health"
	"discord-server-status/metrics"
	"discord-server-status/queues"
	qpubsub "discord-server-status/queues/pubsub"
	"discord-server-status/serverstatus"
	"discord-server-status/telemetry"
	"discord-server-status/telemetry/agones"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "source"

func setLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setLogger(cfg.LogLevel)
	log.Info().Msgf("Starting discord-server-status version: %s", version)
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	// Preflight required configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Context and shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CredentialsFile != "" {
		log.Info().Str("credsFile", cfg.CredentialsFile).Msg("using explicit Google credentials file")
	}

	var source telemetry.Source
	switch cfg.Source {
	case config.SourceAgones:
		client, err := agones.NewClient()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create agones client")
		}
		source = agones.NewSource(client, cfg.TargetNamespace, cfg.GameServerName)
	case config.SourcePubSub:
		store := telemetry.NewStore()
		source = store
		subscriber := qpubsub.NewSubscriber(cfg.GoogleProjectID, cfg.Subscription, cfg.CredentialsFile)
		go func() {
			log.Info().Str("subscription", cfg.Subscription).Msg("starting snapshot subscriber loop")
			if err := subscriber.Start(ctx, func(ctx context.Context, env *queues.SnapshotEnvelope) error {
				store.Put(env.Snapshot(), env.CurrentMap, time.Now())
				return nil
			}); err != nil {
				// Without snapshots the board can never update
				log.Fatal().Err(err).Msg("subscriber exited with fatal error; shutting down")
			}
		}()
	}

	var options []serverstatus.Option
	if cfg.EventsTopic != "" {
		publisher := qpubsub.NewPublisher(cfg.GoogleProjectID, cfg.EventsTopic, cfg.CredentialsFile)
		defer publisher.Close()
		options = append(options, serverstatus.WithPublisher(publisher))
	}

	bot, err := discord.New(cfg.DiscordToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord client")
	}
	if err := bot.Open(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to discord")
	}
	defer bot.Close()

	feature := serverstatus.New(source, bot, cfg.StatusOptions(), options...)
	removeCommand := bot.OnCommand(func(ctx context.Context, channelID, content string) {
		if _, err := feature.HandleCommand(ctx, channelID, content); err != nil {
			log.Error().Err(err).Str("channelId", channelID).Msg("status command failed")
		}
	})
	defer removeCommand()

	// Metrics and health HTTP server
	mux := http.NewServeMux()
	metrics.Register(mux)
	health.Register(mux, feature.Mounted)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting metrics/health server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	if err := feature.Mount(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to mount server status")
	}

	// Block until shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := feature.Unmount(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server status did not stop cleanly")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
