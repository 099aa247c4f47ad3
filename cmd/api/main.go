package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuslink/matchmaker/internal/api"
	"github.com/campuslink/matchmaker/internal/config"
	"github.com/campuslink/matchmaker/internal/connection"
	"github.com/campuslink/matchmaker/internal/database"
	"github.com/campuslink/matchmaker/internal/logging"
	"github.com/campuslink/matchmaker/internal/matching"
	"github.com/campuslink/matchmaker/internal/messaging"
	"github.com/campuslink/matchmaker/internal/profile"
	"github.com/campuslink/matchmaker/internal/ratelimit"
	"github.com/campuslink/matchmaker/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := logging.For("api")
		logger.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.For("api")
	logger.Info().Msg("starting matchmaking API")

	// --- Postgres ---
	var db *sql.DB
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		db, err = database.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, profile storage disabled")
			db = nil
		} else if cfg.Database.Migrate {
			if err := database.Migrate(cfg.Database.URL); err != nil {
				logger.Fatal().Err(err).Msg("run migrations")
			}
		}
	}

	// --- Redis ---
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, rate limiting and suggestion cache disabled")
			rdb.Close()
			rdb = nil
		}
		cancel()
	}

	// --- NATS ---
	var natsClient *messaging.NATSClient
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(messaging.NATSConfig{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name + "-api",
			ReconnectWait: cfg.NATS.ReconnectWait,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, preview and connection events disabled")
			natsClient = nil
		} else {
			publisher = natsClient
		}
	}

	// --- Services ---
	var (
		profiles  api.ProfileStore
		matchRepo matching.Repository
		lookup    connection.ProfileLookup
		connStore connection.Store
	)
	if db != nil {
		ps := profile.NewStore(db)
		profiles, matchRepo, lookup = ps, ps, ps
		connStore = connection.NewPGStore(db)
	} else {
		connStore = connection.NewMemoryStore()
		logger.Warn().Msg("connections kept in memory")
	}

	assembler := matching.NewAssembler(matching.Options{
		Workers:     cfg.Matching.Workers,
		PodPruneK:   cfg.Matching.PodPruneK,
		PairTarget:  cfg.Matching.PairTargetMinutes,
		GroupTarget: cfg.Matching.GroupTargetMinutes,
	}, logging.Logger())
	matcher := matching.NewService(assembler, natsClient, matchRepo, cfg.Matching.PreviewPublishLimit)
	connections := connection.NewService(connStore, lookup, publisher)

	var generator suggest.Generator
	if ollama, err := suggest.NewOllamaGenerator(suggest.OllamaConfig{
		Endpoint: cfg.Suggest.Endpoint,
		Model:    cfg.Suggest.Model,
		APIKey:   cfg.Suggest.APIKey,
		Timeout:  cfg.Suggest.Timeout,
	}); err == nil {
		generator = suggest.NewBreakerGenerator(ollama, suggest.BreakerConfig{
			MaxRequests:      cfg.Suggest.Breaker.MaxRequests,
			Interval:         cfg.Suggest.Breaker.Interval,
			Timeout:          cfg.Suggest.Breaker.Timeout,
			FailureThreshold: cfg.Suggest.Breaker.FailureThreshold,
		})
	} else {
		logger.Info().Msg("suggest.endpoint not set, suggestion routes return 501")
	}
	suggestions := suggest.NewService(generator, suggest.NewCache(rdb), cfg.Suggest.CacheTTL)

	server := api.NewServer(api.Config{
		Auth:        api.AuthConfig{JWTSecret: cfg.Auth.JWTSecret, Required: cfg.Auth.Required},
		CORSOrigins: cfg.Server.CORSOrigins,
		IPRateLimit: cfg.Server.IPRateLimit,
	}, matcher, profiles, connections, suggestions, ratelimit.NewLimiter(rdb))

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().
			Str("listen_addr", cfg.Server.ListenAddr).
			Bool("postgres", db != nil).
			Bool("redis", rdb != nil).
			Bool("nats", natsClient != nil).
			Bool("suggestions", generator != nil).
			Msg("matchmaking API running")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	matcher.Stop()
	if natsClient != nil {
		natsClient.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
}
