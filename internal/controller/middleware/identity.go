// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"sandplane/internal/auth"
	"sandplane/internal/logger"
	"sandplane/internal/orchestrator"
	"sandplane/pkg/api"

	"github.com/google/uuid"
)

// identityKey is the context key for the resolved requester identity.
type identityKey struct{}

// Identity resolves the requester from the X-User-ID header and decides
// whether it holds the administrative override, either by membership in
// adminIDs or by presenting a token whose hash matches adminTokenHash in
// X-Admin-Token. Every request also gets a request id, echoed back in the
// X-Request-ID response header.
func Identity(adminIDs []string, adminTokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(api.ErrorResponse{
					Error: "missing X-User-ID header",
					Code:  "401",
				})
				return
			}

			who := orchestrator.Identity{ID: userID}
			if slices.Contains(adminIDs, userID) {
				who.Admin = true
			} else if token := r.Header.Get("X-Admin-Token"); token != "" {
				who.Admin = auth.VerifyToken(token, adminTokenHash)
			}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := r.Context()
			ctx = context.WithValue(ctx, identityKey{}, who)
			ctx = logger.WithRequestID(ctx, requestID)
			ctx = logger.WithOwner(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the resolved identity from the context.
func IdentityFromContext(ctx context.Context) (orchestrator.Identity, bool) {
	if v := ctx.Value(identityKey{}); v != nil {
		return v.(orchestrator.Identity), true
	}
	return orchestrator.Identity{}, false
}

// NewContextWithIdentity injects an identity; used by handler tests.
func NewContextWithIdentity(ctx context.Context, who orchestrator.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}
