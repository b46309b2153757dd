package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/auth"
)

const identityKey contextKey = "identity"

// Authenticator resolves request credentials to an Identity.
type Authenticator interface {
	AuthenticateKey(ctx context.Context, rawKey string) (*auth.Identity, error)
	AuthenticateSession(ctx context.Context, token string) (*auth.Identity, error)
}

// Auth is middleware that resolves the caller. The X-API-Key header is
// tried first, then an "Authorization: Bearer" session token. Missing or
// invalid credentials return 401.
func Auth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			var (
				identity *auth.Identity
				err      error
			)
			if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
				identity, err = authenticator.AuthenticateKey(r.Context(), rawKey)
			} else if token, ok := bearerToken(r); ok {
				identity, err = authenticator.AuthenticateSession(r.Context(), token)
			} else {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key or session token is required", requestID)
				return
			}

			if err != nil {
				if errors.Is(err, auth.ErrUnauthenticated) {
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid, expired or revoked credentials", requestID)
					return
				}
				slog.Error("authentication failed", "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authentication failed", requestID)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity stores identity in ctx.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}
