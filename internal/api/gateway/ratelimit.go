// Package gateway provides API gateway functionality including rate limiting
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LimitExceededMessage is returned to throttled clients.
const LimitExceededMessage = "Too many requests from this IP, please try again later."

// fixedWindowScript increments the window counter and starts the window on
// the first hit.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return current
`)

// RateLimiter limits requests per client over a fixed window shared through
// Redis.
type RateLimiter struct {
	redis   redis.UniversalClient
	logger  *zap.Logger
	config  RateLimitConfig
	limited prometheus.Counter
}

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	Requests       int
	Window         time.Duration
	IncludeHeaders bool
	KeyPrefix      string
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	Limit      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewRateLimiter creates a new rate limiter. limited may be nil.
func NewRateLimiter(client redis.UniversalClient, cfg RateLimitConfig, limited prometheus.Counter, logger *zap.Logger) *RateLimiter {
	if cfg.Requests <= 0 {
		cfg.Requests = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cyberguard:ratelimit"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		redis:   client,
		logger:  logger,
		config:  cfg,
		limited: limited,
	}
}

// Check counts one request for clientID. Redis failures allow the request.
func (rl *RateLimiter) Check(ctx context.Context, clientID string) *RateLimitResult {
	redisKey := fmt.Sprintf("%s:%s", rl.config.KeyPrefix, clientID)
	now := time.Now()

	count, err := fixedWindowScript.Run(ctx, rl.redis, []string{redisKey}, rl.config.Window.Milliseconds()).Int()
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: rl.config.Requests, Remaining: rl.config.Requests}
	}

	allowed := count <= rl.config.Requests
	remaining := rl.config.Requests - count
	if remaining < 0 {
		remaining = 0
	}

	ttl, err := rl.redis.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = rl.config.Window
	}

	result := &RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     rl.config.Requests,
		ResetAt:   now.Add(ttl),
	}
	if !allowed {
		result.RetryAfter = ttl
	}
	return result
}

// Middleware returns an HTTP middleware that throttles by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := rl.Check(r.Context(), clientIP(r))

		if rl.config.IncludeHeaders {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		}

		if !result.Allowed {
			if rl.limited != nil {
				rl.limited.Inc()
			}
			retry := int(result.RetryAfter.Round(time.Second).Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": LimitExceededMessage,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
