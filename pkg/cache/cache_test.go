package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedEcho(t *testing.T, ttl time.Duration) (*echo.Echo, *Cache, *int) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)

	hits := 0
	e := echo.New()
	e.Use(cache.Middleware())
	e.GET("/things", func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusOK, map[string]string{"answer": "42"})
	})
	e.GET("/broken", func(c echo.Context) error {
		hits++
		return c.JSON(http.StatusInternalServerError, map[string]string{"oops": "1"})
	})
	return e, cache, &hits
}

func roundTrip(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSecondRequestServedFromCache(t *testing.T) {
	e, _, hits := newCachedEcho(t, time.Minute)

	first := roundTrip(e, "/things")
	second := roundTrip(e, "/things")

	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, *hits, "second request must not reach the handler")
}

func TestDistinctURIsCacheSeparately(t *testing.T) {
	e, _, hits := newCachedEcho(t, time.Minute)

	roundTrip(e, "/things?offset=0")
	roundTrip(e, "/things?offset=10")

	assert.Equal(t, 2, *hits)
}

func TestErrorResponsesAreNotCached(t *testing.T) {
	e, _, hits := newCachedEcho(t, time.Minute)

	roundTrip(e, "/broken")
	roundTrip(e, "/broken")

	assert.Equal(t, 2, *hits)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	e, cache, hits := newCachedEcho(t, 0)

	roundTrip(e, "/things")
	roundTrip(e, "/things")

	assert.False(t, cache.Enabled())
	assert.Equal(t, 2, *hits)
}

func TestFlush(t *testing.T) {
	e, cache, hits := newCachedEcho(t, time.Minute)

	roundTrip(e, "/things")
	removed, err := cache.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	roundTrip(e, "/things")
	assert.Equal(t, 2, *hits, "flush forces the next request back to the handler")
}
