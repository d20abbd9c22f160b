// Command trends-server serves the MeLi Trends HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/meli-trends/internal/config"
	"github.com/Sternrassler/meli-trends/internal/server"
	"github.com/Sternrassler/meli-trends/pkg/cache"
	"github.com/Sternrassler/meli-trends/pkg/enrich"
	"github.com/Sternrassler/meli-trends/pkg/logging"
	"github.com/Sternrassler/meli-trends/pkg/meli"
	"github.com/Sternrassler/meli-trends/pkg/ratelimit"
	"github.com/Sternrassler/meli-trends/pkg/session"
	"github.com/Sternrassler/meli-trends/pkg/storage"
	"github.com/Sternrassler/meli-trends/pkg/trends"
)

// sessionPrefix namespaces session keys in Redis.
const sessionPrefix = "meli"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	log.Info().Str("config", cfg.String()).Msg("Configuration loaded")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	handler, err := newHandler(cfg, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build handler")
	}

	opts := server.DefaultOptions(cfg.Addr())
	opts.ShutdownTimeout = cfg.ShutdownTimeout

	if err := server.New(opts, handler).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// newHandler wires the stores, the upstream client and the services into the router.
func newHandler(cfg *config.Config, redisClient *redis.Client) (http.Handler, error) {
	tracker := ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))

	meliClient, err := meli.New(meli.Config{
		BaseURL:        cfg.MeliBaseURL,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.UpstreamTimeout,
		MaxRetries:     cfg.UpstreamMaxRetries,
		InitialBackoff: meli.DefaultConfig().InitialBackoff,
		Gate:           tracker,
	})
	if err != nil {
		return nil, fmt.Errorf("create meli client: %w", err)
	}

	enricher := enrich.New(meliClient, enrich.Config{
		MaxConcurrency: cfg.EnrichConcurrency,
		MaxKeywords:    cfg.EnrichMaxKeywords,
	})

	store := cache.NewStore(redisClient)

	return server.NewRouter(server.Deps{
		Snapshots:  store,
		Trends:     trends.NewService(store, meliClient, enricher),
		Upstream:   meliClient,
		Sessions:   session.NewStore(storage.NewRedis(redisClient, sessionPrefix)),
		Redis:      redisClient,
		Lookups:    server.NewLookups(cfg.LookupCacheSize, cfg.LookupCacheTTL),
		SessionTTL: cfg.SessionTTL,
	}), nil
}
