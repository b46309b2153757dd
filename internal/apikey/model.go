package apikey

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents a row in the api_keys table. The plaintext key is never stored.
type APIKey struct {
	ID             uuid.UUID
	Name           string
	Prefix         string
	HashedKey      string
	OrganizationID uuid.UUID
	ExpiresAt      *time.Time
	IsActive       bool
	LastUsedAt     *time.Time
	CreatedAt      time.Time
}

// Usable reports whether the key is active and not expired at now.
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && (k.ExpiresAt == nil || k.ExpiresAt.After(now))
}
