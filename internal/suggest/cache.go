package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campuslink/matchmaker/internal/logging"
)

const cachePrefix = "suggest:"

// Cache stores generated suggestions as JSON in Redis. A nil Cache or one
// built without a client misses on every read and drops every write.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewCache returns a Cache backed by client, which may be nil.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, logger: logging.For("suggest-cache")}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the value at key into out and reports whether it was found.
// Redis failures count as a miss.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry unreadable")
		return false
	}
	return true
}

// Set stores value at key for ttl. A non-positive ttl skips the write.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() || ttl <= 0 {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// cacheKey hashes the JSON form of input under a per-kind prefix.
func cacheKey(kind string, input any) string {
	b, _ := json.Marshal(input)
	sum := sha256.Sum256(b)
	return cachePrefix + kind + ":" + hex.EncodeToString(sum[:])
}

func normalizeKeyValue(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeKeyList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = normalizeKeyValue(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
