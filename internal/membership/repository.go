package membership

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrMembershipNotFound is returned when no membership exists for a user/organization pair.
var ErrMembershipNotFound = errors.New("membership not found")

// Repository provides operations on the organization_memberships table.
type Repository interface {
	Upsert(ctx context.Context, userID, organizationID uuid.UUID, role string, clerkMembershipID *string) (*Membership, error)
	Get(ctx context.Context, userID, organizationID uuid.UUID) (*Membership, error)
	UpdateRole(ctx context.Context, userID, organizationID uuid.UUID, role string) (*Membership, error)
	DeleteByPair(ctx context.Context, userID, organizationID uuid.UUID) (int64, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
}
