package membership

import (
	"time"

	"github.com/google/uuid"
)

// Membership represents a row in the organization_memberships table.
// A user holds at most one membership per organization.
type Membership struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	OrganizationID    uuid.UUID
	Role              string
	ClerkMembershipID *string // carried for traceability only
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
