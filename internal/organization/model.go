package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a row in the organizations table.
type Organization struct {
	ID                  uuid.UUID
	ClerkOrganizationID *string
	Name                string
	Slug                string
	ImageURL            *string
	LogoURL             *string
	CreatedBy           *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Profile carries the identity-provider fields written by UpsertByClerkID.
type Profile struct {
	ClerkOrganizationID string
	Name                string
	Slug                string
	ImageURL            *string
	LogoURL             *string
	CreatedBy           *string
}
