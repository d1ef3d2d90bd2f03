package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/cometlabs/comet-router/internal/ui"
)

const (
	// DefaultCacheTTL is the default time-to-live for cached route responses.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheSize bounds the number of cached responses.
	DefaultCacheSize = 1024
)

// RouteCache memoizes successful completion responses keyed by a hash of the
// request body. Identical prompts within the TTL are served without touching
// the provider or the caller's quota.
type RouteCache struct {
	entries *expirable.LRU[string, []byte]
	logger  *slog.Logger

	hits   int64
	misses int64
}

// RouteCacheOption configures a RouteCache.
type RouteCacheOption func(*routeCacheConfig)

type routeCacheConfig struct {
	ttl    time.Duration
	size   int
	logger *slog.Logger
}

// WithCacheTTL sets the entry time-to-live.
func WithCacheTTL(ttl time.Duration) RouteCacheOption {
	return func(c *routeCacheConfig) {
		c.ttl = ttl
	}
}

// WithCacheSize bounds the entry count.
func WithCacheSize(size int) RouteCacheOption {
	return func(c *routeCacheConfig) {
		c.size = size
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger *slog.Logger) RouteCacheOption {
	return func(c *routeCacheConfig) {
		c.logger = logger
	}
}

// NewRouteCache creates a bounded TTL cache. Expired entries are dropped
// lazily by the LRU; no cleanup goroutine is needed.
func NewRouteCache(opts ...RouteCacheOption) *RouteCache {
	cfg := routeCacheConfig{
		ttl:    DefaultCacheTTL,
		size:   DefaultCacheSize,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &RouteCache{
		entries: expirable.NewLRU[string, []byte](cfg.size, nil, cfg.ttl),
		logger:  cfg.logger,
	}
}

// HashRequest derives the cache key from the resolved caller identity and the
// raw request body. Keying on identity keeps entries private to their caller:
// under JWT auth two users can send byte-identical bodies, and each must see
// their own response.
func HashRequest(identity string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(identity))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for a key, if present and unexpired.
func (c *RouteCache) Get(key string) ([]byte, bool) {
	resp, ok := c.entries.Get(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return resp, true
}

// Set stores a response under the key.
func (c *RouteCache) Set(key string, response []byte) {
	c.entries.Add(key, response)
}

// Stats reports hit/miss counters and current entry count.
func (c *RouteCache) Stats() (hits, misses int64, size int) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses), c.entries.Len()
}

// CacheMiddleware serves POST /model/route responses from the cache and
// stores fresh 200 responses on the way out.
func CacheMiddleware(cache *RouteCache, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != "/model/route" {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		key := HashRequest(authIdentity(c, ""), bodyBytes)
		if cached, found := cache.Get(key); found {
			if logger != nil {
				logger.Debug("cache hit", slog.String("cache_key", key[:12]))
			}
			ui.PrintCacheHit(key)
			c.Set("cache_hit", true)
			c.Data(http.StatusOK, "application/json", cached)
			c.Abort()
			return
		}

		writer := &responseRecorder{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			cache.Set(key, writer.body.Bytes())
		}
	}
}

// responseRecorder captures the response body while passing it through.
type responseRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
