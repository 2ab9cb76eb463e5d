package server

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/advisor"
	"github.com/jonathan/benefit-optimizer/internal/bundles"
	"github.com/jonathan/benefit-optimizer/internal/cache"
	"github.com/jonathan/benefit-optimizer/internal/config"
	"github.com/jonathan/benefit-optimizer/internal/db"
	"github.com/jonathan/benefit-optimizer/internal/logging"
	"github.com/jonathan/benefit-optimizer/internal/metrics"
	"github.com/jonathan/benefit-optimizer/internal/server/ratelimit"
)

// NewFromConfig connects to PostgreSQL and Redis and builds a server with all services wired
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}

	redisClient := cache.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(ctx); err != nil {
		// the result cache degrades to misses, bundle routes will fail until Redis returns
		logger.Warn("redis unavailable at startup", zap.String("address", cfg.Redis.Address), zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store := cache.NewBundleStore(redisClient.Client, cfg.Cache.BundleTTL)
	results := cache.NewResultCache(redisClient.Client, cfg.Cache.ResultTTL, logger, m)

	return New(Config{Port: cfg.Server.Port}, Deps{
		Bundles:     bundles.NewService(database, store, logger),
		Advisor:     advisor.NewService(database, results, logger, m),
		Plans:       database,
		Metrics:     m,
		Gatherer:    registry,
		RateLimiter: ratelimit.NewLimiter(ratelimit.FromConfig(cfg.RateLimit)),
		Logger:      logger,
		Checks: map[string]Pinger{
			"db":    database,
			"redis": redisClient,
		},
		Closers: []func(){
			func() { _ = redisClient.Close() },
			database.Close,
		},
	}), nil
}
