package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/benefit-optimizer/internal/logging"
	"github.com/jonathan/benefit-optimizer/internal/metrics"
	"github.com/jonathan/benefit-optimizer/internal/types"
)

// DefaultResultTTL is how long a cached recommendation lives when no TTL is configured
const DefaultResultTTL = 15 * time.Minute

const resultKeyPrefix = "optimize:"

// ProfileHash returns a stable key for a profile and state. Struct fields marshal in
// declaration order and map keys are sorted, so equal inputs always hash equally.
func ProfileHash(profile types.RequesterProfile, stateCode string) string {
	payload := struct {
		Profile   types.RequesterProfile `json:"profile"`
		StateCode string                 `json:"state_code"`
	}{profile, strings.ToUpper(stateCode)}

	data, err := json.Marshal(payload)
	if err != nil {
		// only reachable with NaN or Inf values, which validation rejects
		data = []byte(fmt.Sprintf("%#v", payload))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ResultCache caches plan recommendations by profile hash.
// Redis failures are logged and reported as misses, so the cache never fails a request.
type ResultCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResultCache creates a result cache. A non-positive ttl uses DefaultResultTTL.
func NewResultCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{client: client, ttl: ttl, logger: logging.OrNop(logger), metrics: m}
}

// Get returns the cached recommendation for key, if any
func (c *ResultCache) Get(ctx context.Context, key string) (*types.PlanRecommendation, bool) {
	data, err := c.client.Get(ctx, resultKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.ObserveCache(metrics.CacheMiss)
			return nil, false
		}
		c.logger.Warn("result cache read failed", zap.String("key", key), zap.Error(err))
		c.metrics.ObserveCache(metrics.CacheError)
		return nil, false
	}

	var rec types.PlanRecommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("discarding undecodable cached result", zap.String("key", key), zap.Error(err))
		c.metrics.ObserveCache(metrics.CacheError)
		return nil, false
	}
	c.metrics.ObserveCache(metrics.CacheHit)
	return &rec, true
}

// Set stores a recommendation under key
func (c *ResultCache) Set(ctx context.Context, key string, rec *types.PlanRecommendation) {
	data, err := json.Marshal(rec)
	if err != nil {
		c.logger.Warn("failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, resultKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("result cache write failed", zap.String("key", key), zap.Error(err))
	}
}
