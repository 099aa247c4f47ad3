package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuslink/matchmaker/internal/config"
	"github.com/campuslink/matchmaker/internal/database"
	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/messaging"
	"github.com/campuslink/matchmaker/internal/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.For("matcher")
		logger.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.For("matcher")
	logger.Info().Msg("starting matching worker")

	// NATS setup.
	natsClient, err := messaging.NewNATSClient(messaging.NATSConfig{
		URL:           cfg.NATS.URL,
		Name:          cfg.NATS.Name + "-matcher",
		ReconnectWait: cfg.NATS.ReconnectWait,
		MaxReconnects: cfg.NATS.MaxReconnects,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to NATS")
	}

	// Postgres fills in pools for requests that omit one.
	var repo matching.Repository
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err := database.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, requests must carry a candidate pool")
		} else {
			defer db.Close()
			repo = profile.NewStore(db)
		}
	}

	assembler := matching.NewAssembler(matching.Options{
		Workers:     cfg.Matching.Workers,
		PodPruneK:   cfg.Matching.PodPruneK,
		PairTarget:  cfg.Matching.PairTargetMinutes,
		GroupTarget: cfg.Matching.GroupTargetMinutes,
	}, logging.Logger())

	svc := matching.NewService(assembler, natsClient, repo, cfg.Matching.PreviewPublishLimit)
	if err := svc.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start matching service")
	}

	logger.Info().
		Str("nats_url", cfg.NATS.URL).
		Str("subject", messaging.SubjectMatchRequest).
		Int("workers", cfg.Matching.Workers).
		Bool("postgres", repo != nil).
		Msg("matching worker running")

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	svc.Stop()
	natsClient.Close()
}
