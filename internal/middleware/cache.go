package middleware

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/vedi-app/venue-sync/internal/config"
)

// bodyCapture forwards writes to the client while keeping a copy of the
// response body so a successful payload can be stored in the cache.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheJSON caches successful JSON GET responses in Redis for cfg.TTL.
// The cache key combines the caller identity with the route path and raw
// query string: cached responses can be personalized (discovery excludes
// the caller's own venue and sorts by the caller's location), so entries
// must never be shared across users.  Only status 200 responses are
// stored; non-GET requests and cache failures pass through.
func CacheJSON(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet {
				return next(c)
			}
			key := cfg.Prefix + ":" + clientKey(c) + ":" + req.URL.Path + "?" + req.URL.RawQuery

			if body, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
			}

			cw := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				rdb.Set(req.Context(), key, cw.buf.Bytes(), cfg.TTL)
			}
			return nil
		}
	}
}
