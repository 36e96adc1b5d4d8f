package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/pkg/hash"
)

// VectorCacheTTL bounds how long a cached embedding is trusted.
const VectorCacheTTL = 7 * 24 * time.Hour

// Embedder is the backend the cache decorates.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cached serves embeddings from Redis and only sends misses to the backend.
// With a nil client it is a plain passthrough.
type Cached struct {
	next  Embedder
	rdb   *redis.Client
	model string
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCached(next Embedder, rdb *redis.Client, model string, ttl time.Duration, logger zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = VectorCacheTTL
	}
	return &Cached{
		next:  next,
		rdb:   rdb,
		model: model,
		ttl:   ttl,
		log:   logger.With().Str("component", "embedding_cache").Logger(),
	}
}

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.rdb == nil || len(texts) == 0 {
		return c.next.Embed(ctx, texts)
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = VectorKey(c.model, t)
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		// cache trouble is never fatal
		c.log.Warn().Err(err).Msg("embedding cache read failed")
		vals = make([]any, len(texts))
	}
	for i, v := range vals {
		s, ok := v.(string)
		if ok {
			var vec []float32
			if err := json.Unmarshal([]byte(s), &vec); err == nil && len(vec) > 0 {
				out[i] = vec
				continue
			}
		}
		missIdx = append(missIdx, i)
	}
	metrics.CacheHits.WithLabelValues("embedding").Add(float64(len(texts) - len(missIdx)))
	metrics.CacheMisses.WithLabelValues("embedding").Add(float64(len(missIdx)))
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = vecs[j]
		b, err := json.Marshal(vecs[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[i], b, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int("vectors", len(missIdx)).Msg("embedding cache write failed")
	}
	return out, nil
}

// VectorKey is the Redis key of one text's embedding under a model.
func VectorKey(model, text string) string {
	return "emb:" + hash.SHA256Hex(model+"\x00"+text)
}
