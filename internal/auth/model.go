package auth

import (
	"github.com/google/uuid"
)

// Method names how a request authenticated.
type Method string

const (
	MethodAPIKey  Method = "api_key"
	MethodSession Method = "session"
)

// Identity is stored in the request context after authentication.
type Identity struct {
	Method Method

	// Set for API keys: the key and the organization it belongs to.
	APIKeyID       *uuid.UUID
	OrganizationID *uuid.UUID

	// Set for sessions. UserID is nil until the identity provider's
	// user event has been reconciled.
	ClerkUserID string
	UserID      *uuid.UUID
}
