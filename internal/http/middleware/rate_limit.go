package middleware

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/platform/cache"
	"github.com/slotline/slotline-api/pkg/logger"
)

// RateLimitConfig defines rate limiting parameters.
type RateLimitConfig struct {
	Requests int                            // max requests per window
	Window   time.Duration                  // window duration
	KeyFunc  func(r *http.Request) []string // keys to count against
}

// RateLimiter counts requests in Redis. Redis being down fails open: slot
// booking keeps working without the limiter.
type RateLimiter struct {
	store  *cache.Store
	config RateLimitConfig
}

func NewRateLimiter(store *cache.Store, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
	}
	return &RateLimiter{store: store, config: config}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			for _, key := range rl.config.KeyFunc(r) {
				// Keys are hashed so raw IPs never land in Redis.
				hashed := fmt.Sprintf("ratelimit:%x", sha256.Sum256([]byte(key)))
				count, err := rl.store.CountInWindow(r.Context(), hashed, rl.config.Window)
				if err != nil {
					logger.WarnContext(r.Context(), "Rate limit check failed", "error", err)
					continue
				}
				if count > int64(rl.config.Requests) {
					response.RateLimit(w, "too many requests, try again later")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKeyFunc rate-limits by the caller's IP.
func ClientIPKeyFunc(r *http.Request) []string {
	if ip := clientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
