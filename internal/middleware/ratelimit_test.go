package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/jadpai-enrollment/internal/config"
	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

func TestNewTokenBucket_NoRedisPassesThrough(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
	e.POST("/users/auth", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, nil))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users/auth", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/users/auth", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/users/auth")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.1.2.3:route:POST /users/auth", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))

	c.Set(ctxClaims, &utils.SessionClaims{UserID: 12})
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(4), asInt64(float64(4)))
	assert.Equal(t, int64(5), asInt64("5"))
	assert.Equal(t, int64(0), asInt64(nil))
}
