package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/library-backend/api/responses"
	pkgerrors "github.com/angelmondragon/library-backend/pkg/errors"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/redis"
)

type rateLimiterStore interface {
	HitWindow(ctx context.Context, scope string, limit int64, window time.Duration) (redis.WindowState, error)
}

// WriteRateLimitPolicy throttles mutating requests per client IP.
// TrustedProxies is the number of reverse proxies in front of the API that
// append to X-Forwarded-For. With zero, forwarding headers are ignored and the
// peer address is the client.
type WriteRateLimitPolicy struct {
	Window         time.Duration
	Limit          int
	TrustedProxies int
}

func (p WriteRateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// WriteRateLimit applies a fixed-window counter to POST, PUT, PATCH and DELETE
// requests. Reads pass through. A nil store disables the limiter.
func WriteRateLimit(policy WriteRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			ip := clientIP(r, policy.TrustedProxies)
			state, err := store.HitWindow(ctx, "write:"+ip, int64(policy.Limit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !state.Allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"ip":             ip,
						"attempts":       state.Count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					})
					logg.Warn(logCtx, "write.rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(state.ResetIn)))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// clientIP resolves the address to rate limit. Each trusted proxy appends the
// peer it saw to X-Forwarded-For, so the client is the entry trustedProxies
// positions from the right; anything further left is client supplied.
func clientIP(r *http.Request, trustedProxies int) string {
	if r == nil {
		return ""
	}
	if trustedProxies > 0 {
		if header := r.Header.Get("X-Forwarded-For"); header != "" {
			hops := strings.Split(header, ",")
			if idx := len(hops) - trustedProxies; idx >= 0 {
				if ip := strings.TrimSpace(hops[idx]); ip != "" {
					return ip
				}
			}
		} else if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
