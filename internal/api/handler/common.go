package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/auth"
	"github.com/meseeks-ai/meseeks/internal/user"
)

const (
	timeFormat   = "2006-01-02T15:04:05Z"
	maxBodyBytes = 1 << 20
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

// SessionUsers resolves the local user behind a session.
type SessionUsers interface {
	FindByClerkID(ctx context.Context, clerkUserID string) (*user.User, error)
	EnsureByClerkID(ctx context.Context, clerkUserID string) error
}

// sessionUserID returns the local user id for a session identity. A caller
// whose user event has not been reconciled yet gets a placeholder row that
// the event fills in later.
func sessionUserID(ctx context.Context, users SessionUsers, identity *auth.Identity) (uuid.UUID, error) {
	if identity == nil || identity.Method != auth.MethodSession || identity.ClerkUserID == "" {
		return uuid.Nil, errors.New("not a session identity")
	}
	if identity.UserID != nil {
		return *identity.UserID, nil
	}

	if err := users.EnsureByClerkID(ctx, identity.ClerkUserID); err != nil {
		return uuid.Nil, fmt.Errorf("ensuring session user: %w", err)
	}
	u, err := users.FindByClerkID(ctx, identity.ClerkUserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading session user: %w", err)
	}
	return u.ID, nil
}
