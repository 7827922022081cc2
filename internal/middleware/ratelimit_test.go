package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedi-app/venue-sync/internal/config"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func runRequest(e *echo.Echo, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(10))
	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	_ = handler(c)
	return rec
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute, Prefix: "rl"}
	mw := RateLimit(cfg, rdb)
	e := echo.New()

	assert.Equal(t, http.StatusOK, runRequest(e, mw).Code)
	assert.Equal(t, http.StatusOK, runRequest(e, mw).Code)

	rec := runRequest(e, mw)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimitDisabledPassesThrough(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false, Limit: 1, Window: time.Minute, Prefix: "rl"}
	mw := RateLimit(cfg, nil)
	e := echo.New()

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, runRequest(e, mw).Code)
	}
}

func TestCacheJSONServesSecondRequestFromCache(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}
	mw := CacheJSON(cfg, rdb)
	e := echo.New()

	calls := 0
	handler := mw(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"venues": []string{"The Hall"}})
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/venues/available?city=austin", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

// Cached discovery listings are personalized, so one user's entry must
// never be served to another user hitting the same URL.
func TestCacheJSONKeysEntriesPerUser(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}
	mw := CacheJSON(cfg, rdb)
	e := echo.New()

	handler := mw(func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"for_user": c.Get("user_id")})
	})

	do := func(uid uint64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/venues/available?city=austin", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("user_id", uid)
		require.NoError(t, handler(c))
		return rec
	}

	first := do(1)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Contains(t, first.Body.String(), `"for_user":1`)

	second := do(2)
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
	assert.Contains(t, second.Body.String(), `"for_user":2`)

	repeat := do(1)
	assert.Equal(t, "HIT", repeat.Header().Get("X-Cache"))
	assert.Contains(t, repeat.Body.String(), `"for_user":1`)
}

func TestCacheJSONSkipsNonGET(t *testing.T) {
	rdb := newTestRedis(t)
	cfg := config.CacheConfig{Enabled: true, TTL: time.Minute, Prefix: "cache"}
	mw := CacheJSON(cfg, rdb)
	e := echo.New()

	calls := 0
	handler := mw(func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/venues", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
	}
	assert.Equal(t, 2, calls)
}
