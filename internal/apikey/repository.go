package apikey

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrAPIKeyNotFound is returned when an API key record is not found.
var ErrAPIKeyNotFound = errors.New("api key not found")

// Repository provides operations on the api_keys table.
type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	FindActiveByPrefix(ctx context.Context, prefix string) ([]APIKey, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]APIKey, error)
	Revoke(ctx context.Context, organizationID, id uuid.UUID) error
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
	TouchLastUsed(ctx context.Context, id uuid.UUID) error
}
