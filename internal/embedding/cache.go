package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	redisopts "github.com/kart-io/mediasearch/pkg/options/redis"
)

// CachedTextEmbedder caches text embeddings in Redis. Query embeddings
// repeat often enough that a cache saves a round trip to the extraction
// service; media embeddings go through uncached because assets rarely
// repeat within the TTL.
type CachedTextEmbedder struct {
	inner TextEmbedder
	redis *goredis.Client
	opts  *redisopts.Options
}

var _ TextEmbedder = (*CachedTextEmbedder)(nil)

// NewCachedTextEmbedder wraps inner with a Redis cache. A nil redis client
// disables caching.
func NewCachedTextEmbedder(inner TextEmbedder, redis *goredis.Client, opts *redisopts.Options) *CachedTextEmbedder {
	return &CachedTextEmbedder{
		inner: inner,
		redis: redis,
		opts:  opts,
	}
}

func (c *CachedTextEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.opts.KeyPrefix + hex.EncodeToString(hash[:])
}

// EmbedText returns the cached embedding for text, computing and caching it
// on a miss. Cache failures fall through to the inner embedder.
func (c *CachedTextEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c.redis == nil || !c.opts.Enabled {
		return c.inner.EmbedText(ctx, text)
	}

	key := c.cacheKey(text)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err == nil {
			logger.Debugw("embedding cache hit", "key", key)
			return vec, nil
		}
		// Corrupt entry, drop it
		logger.Warnw("failed to unmarshal cached embedding, deleting", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
	} else if err != goredis.Nil {
		logger.Warnw("redis get error, falling back to extractor", "error", err.Error())
	}

	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vec)
	if err != nil {
		logger.Warnw("failed to marshal embedding for caching", "error", err.Error())
		return vec, nil
	}
	if err := c.redis.Set(ctx, key, data, c.opts.TTL).Err(); err != nil {
		logger.Warnw("failed to cache embedding", "error", err.Error(), "key", key)
	}

	return vec, nil
}
