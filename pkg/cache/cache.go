// Package cache is a small Redis-backed response cache for the read-only
// API. Whole JSON responses are stored per request URI with a short TTL;
// inventory data tolerates staleness in the tens of seconds and the
// upstream queries are expensive.
package cache

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"vcbridge/pkg/log"
)

const keyPrefix = "vcbridge:cache:"

// Cache stores successful GET responses in Redis. A non-positive TTL
// disables caching entirely.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a response cache sharing the given redis client.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Enabled reports whether responses are being cached at all.
func (c *Cache) Enabled() bool {
	return c.ttl > 0
}

// captureWriter tees the response body so it can be stored after the
// handler ran.
type captureWriter struct {
	http.ResponseWriter
	buf *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Middleware serves GET requests from the cache when possible and stores
// fresh 200 responses on the way out. Redis trouble degrades to uncached
// operation, it never fails a request.
func (c *Cache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			if !c.Enabled() || ec.Request().Method != http.MethodGet {
				return next(ec)
			}

			key := keyPrefix + ec.Request().RequestURI
			ctx := ec.Request().Context()

			cached, err := c.client.Get(ctx, key).Bytes()
			if err == nil {
				return ec.Blob(http.StatusOK, echo.MIMEApplicationJSON, cached)
			}
			if err != redis.Nil {
				log.Warn().Err(err).Msg("Response cache read failed, serving uncached")
			}

			capture := &captureWriter{ResponseWriter: ec.Response().Writer, buf: &bytes.Buffer{}}
			ec.Response().Writer = capture

			if err := next(ec); err != nil {
				return err
			}

			if ec.Response().Status == http.StatusOK && capture.buf.Len() > 0 {
				if err := c.client.Set(ctx, key, capture.buf.Bytes(), c.ttl).Err(); err != nil {
					log.Warn().Err(err).Msg("Response cache write failed")
				}
			}
			return nil
		}
	}
}

// Flush drops every cached response and returns how many entries were
// removed.
func (c *Cache) Flush(ctx context.Context) (int, error) {
	var removed int
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return removed, err
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
