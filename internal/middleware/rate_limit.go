package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	rateLimitKeyPrefix = "social:ratelimit:user:"
	rateLimitMessage   = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."
	rateLimitWindow    = time.Minute
)

// rateLimitScript is an atomic Lua script for sliding window rate limiting
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local window_start = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return {1, limit - count - 1, 0}
else
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local reset_at = 0
    if #oldest >= 2 then
        reset_at = tonumber(oldest[2]) + window
    end
    return {0, 0, reset_at}
end
`)

// localLimiters is the per-process fallback used when Redis is absent or failing
type localLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newLocalLimiters(perMin int) *localLimiters {
	return &localLimiters{limiters: make(map[string]*rate.Limiter), perMin: perMin}
}

func (l *localLimiters) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rateLimitWindow/time.Duration(l.perMin)), l.perMin)
		l.limiters[key] = lim
	}
	allowed := lim.Allow()
	remaining := int(lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// RateLimitPerUser limits requests per authenticated user. Redis gives a
// limit shared across instances; without it each instance limits locally.
func RateLimitPerUser(redisClient *redis.Client, requestsPerMinute int) gin.HandlerFunc {
	local := newLocalLimiters(requestsPerMinute)

	return func(c *gin.Context) {
		if requestsPerMinute <= 0 {
			c.Next()
			return
		}

		userID := GetUserID(c)
		if userID == "" {
			// Fall back to IP if not authenticated
			userID = "ip:" + c.ClientIP()
		}

		allowed, remaining, resetAt, err := redisAllow(c.Request.Context(), redisClient, rateLimitKeyPrefix+userID, requestsPerMinute)
		if err != nil {
			if redisClient != nil {
				pkglogger.GetLogger().Debug().Err(err).Msg("rate limit falling back to local limiter")
			}
			allowed, remaining = local.allow(userID)
			resetAt = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int64(1)
			if resetAt > 0 {
				if s := (resetAt - time.Now().UnixMilli()) / 1000; s > 1 {
					retryAfter = s
				}
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			rateLimitedTotal.WithLabelValues(routeLabel(c)).Inc()
			common.ErrorResponse(c, http.StatusTooManyRequests, rateLimitMessage, nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func redisAllow(ctx context.Context, redisClient *redis.Client, key string, limit int) (bool, int, int64, error) {
	if redisClient == nil {
		return false, 0, 0, fmt.Errorf("redis disabled")
	}
	now := time.Now().UnixMilli()
	result, err := rateLimitScript.Run(ctx, redisClient, []string{key},
		limit, rateLimitWindow.Milliseconds(), now,
	).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	return result[0] == 1, int(result[1]), result[2], nil
}
