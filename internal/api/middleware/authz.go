package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/auth"
)

// AccessChecker decides whether an identity may act on a resource.
type AccessChecker interface {
	CanAccessOrganization(ctx context.Context, identity *auth.Identity, organizationID uuid.UUID) (bool, error)
	CanAccessUser(ctx context.Context, identity *auth.Identity, userID uuid.UUID) (bool, error)
}

// RequireOrganizationAccess rejects callers that cannot act on the
// organization named by the {param} route parameter.
func RequireOrganizationAccess(checker AccessChecker, param string) func(http.Handler) http.Handler {
	return requireAccess(param, "organization", checker.CanAccessOrganization)
}

// RequireUserAccess rejects callers that cannot read the user named by the
// {param} route parameter.
func RequireUserAccess(checker AccessChecker, param string) func(http.Handler) http.Handler {
	return requireAccess(param, "user", checker.CanAccessUser)
}

func requireAccess(param, resource string, allowed func(context.Context, *auth.Identity, uuid.UUID) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key or session token is required", requestID)
				return
			}

			id, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				response.Err(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+resource+" ID format", requestID)
				return
			}

			ok, err := allowed(r.Context(), identity, id)
			if err != nil {
				slog.Error("access check failed", "resource", resource, "error", err, "requestId", requestID)
				response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Access check failed", requestID)
				return
			}
			if !ok {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Access to this "+resource+" is not allowed", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects callers that did not authenticate with a session token.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session token is required", requestID)
				return
			}
			if identity.Method != auth.MethodSession {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "This endpoint requires a user session", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
