package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/config"
)

// tokenBucketScript refills the bucket continuously from the elapsed
// time and takes one token.  Tokens are stored as a string so fractions
// survive between calls.  It returns {allowed, remaining, wait_ms}.
var tokenBucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2]) / 1000
local burst = tonumber(ARGV[3])

local state = redis.call('HMGET', KEYS[1], 't', 'ts')
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - ts) * per_ms)

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.ceil((1 - tokens) / per_ms)
end

redis.call('HSET', KEYS[1], 't', tostring(tokens), 'ts', now)
redis.call('EXPIRE', KEYS[1], ARGV[4])
return {allowed, math.floor(tokens), wait}
`)

// NewTokenBucket rate limits requests with a Redis token bucket keyed by
// cfg.KeyStrategy.  Mutating methods use cfg.Write, everything else
// cfg.Read.  Without Redis, or when disabled, every request passes.
// Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := int64(cfg.TTL / time.Second)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			budget, class := budgetFor(cfg, c.Request().Method)
			key := buildRateKey(cfg, c) + ":" + class

			vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(), budget.Rate, budget.Burst, ttl).Int64Slice()
			if err != nil || len(vals) != 3 {
				logger.Warn("ratelimit: script failed, allowing request", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			allowed, remaining, waitMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(budget.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(waitMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Debug("ratelimit: blocked", zap.String("key", key), zap.Int64("wait_ms", waitMs))
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// budgetFor picks the bucket for method and names its key class.
func budgetFor(cfg config.RateLimitConfig, method string) (config.Budget, string) {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return cfg.Read, "r"
	}
	return cfg.Write, "w"
}

// buildRateKey joins the prefix with the request parts named by the key
// strategy.  Floor routes also carry the floor id.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := UserID(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	default: // ip_user_route
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	if floor := c.Param("floor_id"); floor != "" {
		parts = append(parts, "floor", floor)
	}
	return strings.Join(parts, ":")
}
