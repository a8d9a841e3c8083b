package http

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateDecision is the outcome of one token bucket take.
type RateDecision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter takes one token for key.
type RateLimiter interface {
	Take(ctx context.Context, key string) (RateDecision, error)
}

// tokenBucketScript refills whole intervals since the last refill, then takes
// one token. The hash expires once a full bucket would have been restored.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])

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
		last_refill = last_refill + intervals * interval_ms
	end
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('PEXPIRE', key, math.max(1000, capacity * interval_ms))
return { allowed, tokens, retry_ms }
`)

// RedisTokenBucket is a RateLimiter shared by every server instance.
type RedisTokenBucket struct {
	client   *redis.Client
	capacity int
	interval time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisTokenBucket returns a bucket of capacity tokens refilled one per interval.
func NewRedisTokenBucket(client *redis.Client, capacity int, interval time.Duration) *RedisTokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &RedisTokenBucket{client: client, capacity: capacity, interval: interval, prefix: "hotel:ratelimit", now: time.Now}
}

// Take implements RateLimiter.
func (b *RedisTokenBucket) Take(ctx context.Context, key string) (RateDecision, error) {
	raw, err := tokenBucketScript.Run(ctx, b.client, []string{b.prefix + ":" + key},
		b.now().UnixMilli(),
		b.capacity,
		b.interval.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return RateDecision{}, err
	}
	if len(raw) != 3 {
		return RateDecision{}, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}
	return RateDecision{
		Allowed:    raw[0] == 1,
		Remaining:  raw[1],
		RetryAfter: time.Duration(raw[2]) * time.Millisecond,
	}, nil
}

// RateLimit throttles a route per client address. Limiter failures let the
// request through.
func RateLimit(limiter RateLimiter, route string, limit int, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + clientAddress(r)
			decision, err := limiter.Take(r.Context(), key)
			if err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			if !decision.Allowed {
				seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				responder.writeError(r.Context(), w, http.StatusTooManyRequests, codeRateLimited, "too many requests, please retry later", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
