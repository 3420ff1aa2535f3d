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

	"github.com/iliyamo/jadpai-enrollment/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `[{"id":1}]`, string(body))
}

func TestDecodePayload_Corrupt(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0, '{'})
	assert.False(t, ok)
}

func TestCaptureWriter_LimitsBuffer(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("defg"))
	require.NoError(t, err)

	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestCacheKeyFrom(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/events")
		return c
	}
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}

	a := cacheKeyFrom(cfg, newCtx("/events?page=1"))
	b := cacheKeyFrom(cfg, newCtx("/events?page=2"))
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	assert.Equal(t, cacheKeyFrom(cfg, newCtx("/events?page=1")), cacheKeyFrom(cfg, newCtx("/events?page=2")))
}

func TestCacheKeyFrom_ConcretePath(t *testing.T) {
	e := echo.New()
	newCtx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/events/:id")
		return c
	}
	for _, strategy := range []string{"route", "method_route", "method_route_query", "route_query"} {
		cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: strategy}
		assert.NotEqual(t, cacheKeyFrom(cfg, newCtx("/events/1")), cacheKeyFrom(cfg, newCtx("/events/2")), strategy)
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func serve(e *echo.Echo, method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNewRedisCache_MissThenHitPerID(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := echo.New()
	calls := 0
	e.GET("/events/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	}, NewRedisCache(testCacheConfig(), rdb))

	first := serve(e, http.MethodGet, "/events/1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"1"}`, first.Body.String())

	again := serve(e, http.MethodGet, "/events/1")
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"1"}`, again.Body.String())
	assert.Contains(t, again.Header().Get(echo.HeaderContentType), "application/json")
	assert.Equal(t, 1, calls)

	other := serve(e, http.MethodGet, "/events/2")
	require.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"2"}`, other.Body.String())
	assert.Equal(t, 2, calls)
}

func TestNewRedisCache_SkipsNon200AndAuthorized(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := echo.New()
	calls := 0
	e.GET("/events/:id", func(c echo.Context) error {
		calls++
		if c.Param("id") == "404" {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "event not found"})
		}
		return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
	}, NewRedisCache(testCacheConfig(), rdb))

	serve(e, http.MethodGet, "/events/404")
	rec := serve(e, http.MethodGet, "/events/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())

	serve(e, http.MethodGet, "/events/7", echo.HeaderAuthorization, "Bearer abc")
	rec = serve(e, http.MethodGet, "/events/7", echo.HeaderAuthorization, "Bearer abc")
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, 4, calls)
	assert.Empty(t, mr.Keys())
}

func TestInvalidateCache_PurgesAfterSuccessfulWrite(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cfg := testCacheConfig()
	e := echo.New()
	e.GET("/events", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{"launch"})
	}, NewRedisCache(cfg, rdb))
	invalidate := InvalidateCache(cfg, rdb, nil)
	e.PUT("/events/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "updated"})
	}, invalidate)
	e.DELETE("/events/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	}, invalidate)
	require.NoError(t, mr.Set("session:1", "keep"))

	serve(e, http.MethodGet, "/events")
	require.Equal(t, "HIT", serve(e, http.MethodGet, "/events").Header().Get("X-Cache"))

	rec := serve(e, http.MethodDelete, "/events/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/events").Header().Get("X-Cache"))

	rec = serve(e, http.MethodPut, "/events/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"session:1"}, mr.Keys())
	assert.Equal(t, "MISS", serve(e, http.MethodGet, "/events").Header().Get("X-Cache"))
}

func TestNewRedisCache_DisabledPassesThrough(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	e.GET("/events", func(c echo.Context) error { return c.String(http.StatusOK, "fresh") },
		NewRedisCache(cfg, nil), InvalidateCache(cfg, nil, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
