package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const allColumns = `id, organization_id, name, description, price_cents, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Repository backed by the given connection pool.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("scanning product row: %w", err)
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new product record.
func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (organization_id, name, description, price_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, p.OrganizationID, p.Name, p.Description, p.PriceCents).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProductName
		}
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

// GetByID retrieves a single product of the organization.
func (r *PostgresRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + allColumns + ` FROM products WHERE id = $1 AND organization_id = $2`
	return scanProduct(r.pool.QueryRow(ctx, query, id, organizationID))
}

// ListByOrganization retrieves the organization's products ordered by name.
func (r *PostgresRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Product, error) {
	query := `SELECT ` + allColumns + ` FROM products WHERE organization_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}
	return products, nil
}

// Update modifies non-nil fields on a product. Returns the updated product.
func (r *PostgresRepository) Update(ctx context.Context, organizationID, id uuid.UUID, fields UpdateFields) (*Product, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if fields.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *fields.Name)
		argIdx++
	}
	if fields.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, *fields.Description)
		argIdx++
	}
	if fields.PriceCents != nil {
		setClauses = append(setClauses, fmt.Sprintf("price_cents = $%d", argIdx))
		args = append(args, *fields.PriceCents)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, organizationID, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id, organizationID)

	query := fmt.Sprintf(`
		UPDATE products
		SET %s
		WHERE id = $%d AND organization_id = $%d
		RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1, allColumns)

	p, err := scanProduct(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateProductName
		}
		return nil, err
	}
	return p, nil
}

// Delete removes a product of the organization.
func (r *PostgresRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
