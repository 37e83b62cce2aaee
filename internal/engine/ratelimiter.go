package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/identity"
	"github.com/redis/go-redis/v9"
)

// RateLimiter implements a per-principal sliding window limit on registry
// writes using Redis. Each principal has a sorted set of request members
// scored by timestamp; a Lua script cleans expired entries, checks the
// count, and adds the new entry atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	limit       int
	window      time.Duration
	seq         atomic.Uint64
}

// Lua script for atomic sliding window rate limiting.
// 1. Remove entries older than the window
// 2. Count remaining entries
// 3. If under the limit, add a new entry and return 1 (allowed)
// 4. If at/over the limit, return 0 (denied)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, math.floor(window / 1000) + 1)
    return 1
else
    return 0
end
`)

// NewRateLimiter allows limit writes per principal per second. A limit of
// zero or less disables limiting.
func NewRateLimiter(redisClient *redis.Client, limit int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		limit:       limit,
		window:      time.Second,
	}
}

func rlKey(p domain.Principal) string {
	return fmt.Sprintf("rl:write:%s", p)
}

// Allow reports whether p may perform another write within the window.
func (rl *RateLimiter) Allow(ctx context.Context, p domain.Principal) bool {
	if rl.limit <= 0 {
		return true
	}

	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d:%d", now, rl.seq.Add(1))

	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(p)},
		now, rl.window.Milliseconds(), rl.limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "principal", p)
		return true // fail open
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "principal", p, "limit", rl.limit)
		return false
	}
	return true
}

// Middleware applies Allow to authenticated requests. Anonymous requests
// pass through untouched; they are rejected later by the identity layer.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := identity.PrincipalFrom(r.Context())
		if ok && !rl.Allow(r.Context(), p) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"write rate limit exceeded"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
