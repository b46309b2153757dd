package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrOrganizationNotFound is returned when an organization record is not found.
var ErrOrganizationNotFound = errors.New("organization not found")

// Repository provides operations on the organizations table.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	List(ctx context.Context) ([]Organization, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]Organization, error)
	FindByClerkID(ctx context.Context, clerkOrganizationID string) (*Organization, error)
	UpsertByClerkID(ctx context.Context, p Profile) (*Organization, error)
	EnsureByClerkID(ctx context.Context, clerkOrganizationID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByClerkID(ctx context.Context, clerkOrganizationID string) (bool, error)
}
