package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProductNotFound is returned when a product record is not found.
var ErrProductNotFound = errors.New("product not found")

// ErrDuplicateProductName is returned when the organization already has a product with the same name.
var ErrDuplicateProductName = errors.New("product name already exists")

// Repository provides CRUD operations on the products table. Every call is
// scoped to an organization.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (*Product, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Product, error)
	Update(ctx context.Context, organizationID, id uuid.UUID, fields UpdateFields) (*Product, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}
