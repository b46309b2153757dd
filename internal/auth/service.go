// Package auth resolves request credentials to an Identity and decides
// organization access. An API key is tried first, then a session token.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/apikey"
	"github.com/meseeks-ai/meseeks/internal/clerk"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/user"
)

// ErrUnauthenticated is returned when a credential is missing or invalid.
var ErrUnauthenticated = errors.New("unauthenticated")

// KeyAuthenticator resolves raw API keys.
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*apikey.APIKey, error)
}

// SessionVerifier validates session tokens.
type SessionVerifier interface {
	Verify(raw string) (*clerk.SessionClaims, error)
}

// UserFinder looks up local users by identity-provider id.
type UserFinder interface {
	FindByClerkID(ctx context.Context, clerkUserID string) (*user.User, error)
}

// MembershipGetter looks up a single membership.
type MembershipGetter interface {
	Get(ctx context.Context, userID, organizationID uuid.UUID) (*membership.Membership, error)
}

// Service provides authentication operations.
type Service struct {
	keys        KeyAuthenticator
	sessions    SessionVerifier
	users       UserFinder
	memberships MembershipGetter
}

// NewService creates a new auth Service.
func NewService(keys KeyAuthenticator, sessions SessionVerifier, users UserFinder, memberships MembershipGetter) *Service {
	return &Service{
		keys:        keys,
		sessions:    sessions,
		users:       users,
		memberships: memberships,
	}
}

// AuthenticateKey resolves a raw API key to an organization-scoped Identity.
func (s *Service) AuthenticateKey(ctx context.Context, rawKey string) (*Identity, error) {
	k, err := s.keys.Authenticate(ctx, rawKey)
	if err != nil {
		if errors.Is(err, apikey.ErrInvalidKey) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticating api key: %w", err)
	}

	return &Identity{
		Method:         MethodAPIKey,
		APIKeyID:       &k.ID,
		OrganizationID: &k.OrganizationID,
	}, nil
}

// AuthenticateSession resolves a session token to a user Identity.
func (s *Service) AuthenticateSession(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	identity := &Identity{Method: MethodSession, ClerkUserID: claims.UserID()}

	u, err := s.users.FindByClerkID(ctx, claims.UserID())
	switch {
	case err == nil:
		identity.UserID = &u.ID
	case errors.Is(err, user.ErrUserNotFound):
	default:
		return nil, fmt.Errorf("resolving session user: %w", err)
	}
	return identity, nil
}

// CanAccessOrganization reports whether the identity may act on the organization.
// API keys reach only their own organization; sessions need a membership.
func (s *Service) CanAccessOrganization(ctx context.Context, identity *Identity, organizationID uuid.UUID) (bool, error) {
	if identity == nil {
		return false, nil
	}

	switch identity.Method {
	case MethodAPIKey:
		return identity.OrganizationID != nil && *identity.OrganizationID == organizationID, nil
	case MethodSession:
		if identity.UserID == nil {
			return false, nil
		}
		_, err := s.memberships.Get(ctx, *identity.UserID, organizationID)
		if errors.Is(err, membership.ErrMembershipNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("checking membership: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// CanAccessUser reports whether the identity may read the user's data.
// Sessions reach only their own user; API keys reach members of their organization.
func (s *Service) CanAccessUser(ctx context.Context, identity *Identity, userID uuid.UUID) (bool, error) {
	if identity == nil {
		return false, nil
	}

	switch identity.Method {
	case MethodSession:
		return identity.UserID != nil && *identity.UserID == userID, nil
	case MethodAPIKey:
		if identity.OrganizationID == nil {
			return false, nil
		}
		_, err := s.memberships.Get(ctx, userID, *identity.OrganizationID)
		if errors.Is(err, membership.ErrMembershipNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("checking membership: %w", err)
		}
		return true, nil
	}
	return false, nil
}
