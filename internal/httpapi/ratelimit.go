package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tokenBucketScript implements a refilling token bucket per key. It runs
// atomically inside Redis so concurrent requests agree on the count.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
    tokens = capacity
    last_refill = now_ms
end

if interval_ms > 0 then
    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + intervals)
        last_refill = last_refill + (intervals * interval_ms)
    end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    local until_next = interval_ms - (now_ms - last_refill)
    if until_next < 0 then until_next = 0 end
    retry_after_ms = until_next
end

redis.call('HMSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, retry_after_ms }
`)

// rateLimitMiddleware throttles by client IP plus route. Redis being down
// fails open: reservation traffic is never blocked by the limiter's own
// infrastructure.
func rateLimitMiddleware(cfg Config, client *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	if cfg.RateLimitCapacity == 0 || client == nil {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	return func(ctx *gin.Context) {
		key := "rl:" + ctx.ClientIP() + ":" + ctx.FullPath()
		args := []interface{}{
			time.Now().UnixMilli(),
			cfg.RateLimitCapacity,
			cfg.RateLimitRefillInterval.Milliseconds(),
			int64(cfg.RateLimitTTL / time.Second),
		}
		values, err := tokenBucketScript.Run(ctx.Request.Context(), client, []string{key}, args...).Int64Slice()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			ctx.Next()
			return
		}
		if len(values) == 2 && values[0] == 0 {
			retryAfter := (values[1] + 999) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			ctx.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests,
				errorResponse("rate_limited", "too many requests"))
			return
		}
		ctx.Next()
	}
}
