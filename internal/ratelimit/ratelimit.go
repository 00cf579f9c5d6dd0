// Package ratelimit throttles public endpoints (login, contact form) with a
// fixed-window counter kept in Redis. A nil *Limiter allows everything, and so does a limiter
// whose Redis is unreachable.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Login attempt defaults.
const (
	DefaultLimit  = 5
	DefaultWindow = time.Minute
)

// Contact form defaults, per client IP.
const (
	ContactLimit  = 10
	ContactWindow = time.Hour
)

// Limiter counts hits per key in fixed windows.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// New returns a limiter allowing limit hits per window for each key.
func New(client *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow records a hit for key and reports whether it is within the limit.
// When denied, retry is how long until the window resets.
func (l *Limiter) Allow(ctx context.Context, key string) (ok bool, retry time.Duration) {
	if l == nil || l.client == nil {
		return true, 0
	}

	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable", "error", err)
		return true, 0
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			slog.Warn("setting rate limit window", "key", k, "error", err)
		}
	}
	if n <= l.limit {
		return true, 0
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl
}

// Middleware rejects requests from a client IP over the limit with 429.
// deny writes the response, so JSON and HTML callers can phrase it their way.
func (l *Limiter) Middleware(deny func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := l.Allow(r.Context(), ClientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)))
				deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of the request's remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
