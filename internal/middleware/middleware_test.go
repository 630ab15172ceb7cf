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
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/config"
	"github.com/iliyamo/floor-layout/internal/utils"
)

const secret = "test-secret"

func protected(roles ...string) *echo.Echo {
	e := echo.New()
	e.Use(RequestLogger(zap.NewNop(), nil))
	g := e.Group("/v1", JWTAuth(secret), RequireRole(roles...))
	g.GET("/whoami", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c)})
	})
	return e
}

func do(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := protected(RoleManager)

	rec := do(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("other-secret", "u1", RoleManager, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, other.Token).Code)

	staff, err := utils.NewAccessToken(secret, "u2", RoleStaff, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(e, staff.Token).Code)

	mgr, err := utils.NewAccessToken(secret, "u1", RoleManager, 5)
	require.NoError(t, err)
	rec = do(e, mgr.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1","role":"MANAGER"}`, rec.Body.String())

	expired, err := utils.NewAccessToken(secret, "u1", RoleManager, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, expired.Token).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/v1/floors/main/draft", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/floors/:floor_id/draft")
	c.SetParamNames("floor_id")
	c.SetParamValues("main")
	c.Set("user_id", "u7")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	assert.Equal(t, "rl:user:u7:floor:main", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:u7:route:PUT /v1/floors/:floor_id/draft:floor:main", buildRateKey(cfg, c))
}

func TestNewTokenBucket_DisabledPassesThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	called := false
	require.NoError(t, mw(func(echo.Context) error { called = true; return nil })(c))
	assert.True(t, called)
}

func TestNewTokenBucket_SeparateReadAndWriteBudgets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cfg := config.RateLimitConfig{
		Enabled:     true,
		Read:        config.Budget{Rate: 1, Burst: 5},
		Write:       config.Budget{Rate: 0.01, Burst: 2},
		TTL:         time.Minute,
		KeyStrategy: "ip",
		Prefix:      "rl",
	}
	e := echo.New()
	g := e.Group("/v1/floors/:floor_id", NewTokenBucket(cfg, rdb, zap.NewNop()))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	g.GET("/layout", ok)
	g.PUT("/draft", ok)

	send := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPut, "/v1/floors/main/draft").Code)
	assert.Equal(t, http.StatusOK, send(http.MethodPut, "/v1/floors/main/draft").Code)
	rec := send(http.MethodPut, "/v1/floors/main/draft")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	// reads draw from their own bucket, other floors from theirs
	rec = send(http.MethodGet, "/v1/floors/main/layout")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, send(http.MethodPut, "/v1/floors/patio/draft").Code)
}

func TestBudgetFor(t *testing.T) {
	cfg := config.RateLimitConfig{
		Read:  config.Budget{Rate: 2, Burst: 60},
		Write: config.Budget{Rate: 0.5, Burst: 10},
	}
	b, class := budgetFor(cfg, http.MethodGet)
	assert.Equal(t, 60, b.Burst)
	assert.Equal(t, "r", class)

	for _, m := range []string{http.MethodPut, http.MethodPost, http.MethodPatch} {
		b, class = budgetFor(cfg, m)
		assert.Equal(t, 10, b.Burst, m)
		assert.Equal(t, "w", class, m)
	}
}

func TestUserIDDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", UserID(c))
	assert.Equal(t, "", Role(c))
}
