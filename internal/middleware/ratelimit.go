package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/logger"
)

// limiterScript keeps {level, ts} per key. The level refills linearly at
// ARGV[3] tokens per ARGV[4] ms, capped at ARGV[2]. Returns
// {allowed, whole tokens left, ms until the next token}.
var limiterScript = redis.NewScript(`
local now, cap = tonumber(ARGV[1]), tonumber(ARGV[2])
local rate = tonumber(ARGV[3]) / math.max(1, tonumber(ARGV[4]))

local level = tonumber(redis.call('HGET', KEYS[1], 'level'))
local ts = tonumber(redis.call('HGET', KEYS[1], 'ts'))
if not level or not ts then
  level, ts = cap, now
end
level = math.min(cap, level + math.max(0, now - ts) * rate)

local ok, wait = 0, 0
if level >= 1 then
  ok, level = 1, level - 1
else
  wait = math.ceil((1 - level) / rate)
end

redis.call('HSET', KEYS[1], 'level', tostring(level), 'ts', now)
redis.call('EXPIRE', KEYS[1], ARGV[5])
return { ok, math.floor(level), wait }
`)

// NewTokenBucket limits requests per key with a Redis token bucket. It is
// a pass-through when disabled or without Redis, and it fails open when
// Redis errors mid-request.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	return newTokenBucket(cfg, rdb, log, time.Now)
}

func newTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger, now func() time.Time) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	log = logger.OrNop(log).Named("ratelimit")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			args := []any{
				now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}
			vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Int64Slice()
			if err != nil || len(vals) != 3 {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			allowed, remaining, waitMs := vals[0] == 1, vals[1], vals[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := max(1, (waitMs+999)/1000)
				h.Set("Retry-After", strconv.FormatInt(secs, 10))
				if cfg.Debug {
					log.Info("rate limited", zap.String("key", key), zap.Int64("wait_ms", waitMs))
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// rateKeyParts lists, per strategy, which request attributes identify
// the bucket.
var rateKeyParts = map[string][]string{
	"ip":         {"ip"},
	"user":       {"user"},
	"route":      {"route"},
	"ip_user":    {"ip", "user"},
	"user_route": {"user", "route"},
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	attrs, ok := rateKeyParts[strings.ToLower(cfg.KeyStrategy)]
	if !ok {
		attrs = []string{"ip", "user", "route"}
	}
	parts := []string{cfg.Prefix}
	for _, a := range attrs {
		var v string
		switch a {
		case "ip":
			if v = c.RealIP(); v == "" {
				v = "unknown"
			}
		case "user":
			v = subject(c)
		case "route":
			v = c.Request().Method + " " + c.Path()
		}
		parts = append(parts, a, v)
	}
	return strings.Join(parts, ":")
}
