package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// ClassificationCacheTTL bounds staleness if an invalidation is lost.
const ClassificationCacheTTL = 10 * time.Minute

// ClassificationCache is the cache-aside contract of the classification
// writers. A nil *CacheService is a valid no-op implementation.
type ClassificationCache interface {
	GetClassification(ctx context.Context, t model.Target) (model.Resolution, bool)
	SetClassification(ctx context.Context, res model.Resolution) error
	Invalidate(ctx context.Context, targets ...model.Target)
}

func cacheOrNoop(c ClassificationCache) ClassificationCache {
	if c == nil {
		return (*CacheService)(nil)
	}
	return c
}

// CacheService is a Redis cache-aside layer for stored classifications.
type CacheService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, logger zerolog.Logger) *CacheService {
	log := logger.With().Str("component", "cache").Logger()
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{log: log}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb, log: log}
}

// Client returns the underlying Redis client (for health checks and the
// embedding cache). May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetClassification returns a cached resolution, or false on a miss or
// when caching is disabled.
func (c *CacheService) GetClassification(ctx context.Context, t model.Target) (model.Resolution, bool) {
	if c == nil || c.rdb == nil {
		return model.Resolution{}, false
	}
	data, err := c.rdb.Get(ctx, classificationKey(t)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("target", t.String()).Msg("cache read failed")
		}
		metrics.CacheMisses.WithLabelValues("classification").Inc()
		return model.Resolution{}, false
	}
	var res model.Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		metrics.CacheMisses.WithLabelValues("classification").Inc()
		return model.Resolution{}, false
	}
	metrics.CacheHits.WithLabelValues("classification").Inc()
	return res, true
}

// SetClassification stores a resolution.
func (c *CacheService) SetClassification(ctx context.Context, res model.Resolution) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, classificationKey(res.Target), b, ClassificationCacheTTL).Err()
}

// Invalidate drops cached classifications after a write.
func (c *CacheService) Invalidate(ctx context.Context, targets ...model.Target) {
	if c == nil || c.rdb == nil || len(targets) == 0 {
		return
	}
	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = classificationKey(t)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Int("keys", len(keys)).Msg("cache invalidate failed")
	}
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func classificationKey(t model.Target) string {
	return fmt.Sprintf("classification:%s:%d", t.Type, t.ID)
}
