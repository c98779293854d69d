package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/velmora/retail-admin-backend/api/responses"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// MutationRateLimitPolicy defines the throttling parameters for catalog
// mutation endpoints.
type MutationRateLimitPolicy struct {
	name    string
	window  time.Duration
	ipLimit int
}

// NewMutationRateLimitPolicy builds a policy with the supplied window and limit.
func NewMutationRateLimitPolicy(name string, window time.Duration, ipLimit int) MutationRateLimitPolicy {
	return MutationRateLimitPolicy{
		name:    strings.ToLower(strings.TrimSpace(name)),
		window:  window,
		ipLimit: ipLimit,
	}
}

func (p MutationRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.ipLimit > 0
}

func (p MutationRateLimitPolicy) ipKey(ip string) string {
	if ip == "" {
		return ""
	}
	name := p.name
	if name == "" {
		name = "mutation"
	}
	return fmt.Sprintf("rl:ip:%s:%s", name, ip)
}

// MutationRateLimit enforces a per-IP counter for catalog mutations so a
// misbehaving import script cannot hammer the conflict checker.
func MutationRateLimit(policy MutationRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := policy.ipKey(clientIP(r))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			count, err := store.IncrWithTTL(ctx, key, policy.window)
			if err != nil {
				// Fail open: losing redis must not take catalog mutations down.
				if logg != nil {
					logg.Error(ctx, "rate limit store unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(policy.ipLimit) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"scope": policy.name,
						"count": count,
						"limit": policy.ipLimit,
					}), "rate limit exceeded")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
