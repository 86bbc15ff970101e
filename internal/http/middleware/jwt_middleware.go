package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/slotline/slotline-api/internal/http/response"
	"github.com/slotline/slotline-api/internal/platform/auth"
	"github.com/slotline/slotline-api/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireHost rejects requests without a valid host access token and puts the
// parsed claims on the context. The host ID also lands on the logger context
// so downstream log lines carry it.
func RequireHost(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "missing bearer token")
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(authz, "Bearer "))
			if err != nil {
				response.Unauthorized(w, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.HostIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the authenticated host's claims, or nil on public routes.
func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
