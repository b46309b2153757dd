package product

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a row in the products table. Products belong to one organization.
type Product struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Description    *string
	PriceCents     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UpdateFields holds optional fields for a partial product update.
// Nil fields are not updated.
type UpdateFields struct {
	Name        *string
	Description *string
	PriceCents  *int64
}
