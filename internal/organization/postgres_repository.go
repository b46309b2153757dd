package organization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meseeks-ai/meseeks/internal/database"
)

const organizationColumns = `id, clerk_organization_id, name, slug, image_url, logo_url, created_by, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.ClerkOrganizationID, &o.Name, &o.Slug,
		&o.ImageURL, &o.LogoURL, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts an organization that is not (yet) known to the identity provider.
func (r *PostgresRepository) Create(ctx context.Context, o *Organization) error {
	query := `
		INSERT INTO organizations (name, slug, image_url, logo_url, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, o.Name, o.Slug, o.ImageURL, o.LogoURL, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting organization: %w", err)
	}
	return nil
}

// GetByID retrieves a single organization by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	o, err := scanOrganization(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("querying organization: %w", err)
	}
	return o, nil
}

// FindByClerkID retrieves an organization by its identity-provider id.
func (r *PostgresRepository) FindByClerkID(ctx context.Context, clerkOrganizationID string) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE clerk_organization_id = $1`

	o, err := scanOrganization(r.pool.QueryRow(ctx, query, clerkOrganizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("querying organization by clerk id: %w", err)
	}
	return o, nil
}

// List retrieves all organizations ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations ORDER BY created_at ASC`

	return r.list(ctx, query)
}

// ListByMember retrieves the organizations the user belongs to.
func (r *PostgresRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]Organization, error) {
	query := `SELECT o.id, o.clerk_organization_id, o.name, o.slug, o.image_url, o.logo_url,
		       o.created_by, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at ASC`

	return r.list(ctx, query, userID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing organizations: %w", err)
	}
	defer rows.Close()

	orgs := []Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning organization row: %w", err)
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating organization rows: %w", err)
	}
	return orgs, nil
}

// UpsertByClerkID creates the organization or replaces its provider-owned fields.
func (r *PostgresRepository) UpsertByClerkID(ctx context.Context, p Profile) (*Organization, error) {
	query := `
		INSERT INTO organizations (clerk_organization_id, name, slug, image_url, logo_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (clerk_organization_id) DO UPDATE SET
			name       = EXCLUDED.name,
			slug       = EXCLUDED.slug,
			image_url  = EXCLUDED.image_url,
			logo_url   = EXCLUDED.logo_url,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
		RETURNING ` + organizationColumns

	o, err := scanOrganization(r.pool.QueryRow(ctx, query,
		p.ClerkOrganizationID, p.Name, p.Slug, p.ImageURL, p.LogoURL, p.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("upserting organization: %w", err)
	}
	return o, nil
}

// EnsureByClerkID creates a placeholder with empty name and slug unless the
// organization already exists.
func (r *PostgresRepository) EnsureByClerkID(ctx context.Context, clerkOrganizationID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO organizations (clerk_organization_id, name, slug) VALUES ($1, '', '')
		ON CONFLICT (clerk_organization_id) DO NOTHING`, clerkOrganizationID)
	if err != nil {
		return fmt.Errorf("ensuring organization %s: %w", clerkOrganizationID, err)
	}
	return nil
}

// Delete removes an organization and everything it owns in one transaction.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := r.deleteCascade(ctx, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrOrganizationNotFound
	}
	return nil
}

// DeleteByClerkID behaves like Delete but reports absence instead of failing.
func (r *PostgresRepository) DeleteByClerkID(ctx context.Context, clerkOrganizationID string) (bool, error) {
	return r.deleteCascade(ctx,
		`SELECT id FROM organizations WHERE clerk_organization_id = $1 FOR UPDATE`, clerkOrganizationID)
}

func (r *PostgresRepository) deleteCascade(ctx context.Context, lookup string, arg any) (bool, error) {
	var deleted bool

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		if err := tx.QueryRow(ctx, lookup, arg).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("locking organization: %w", err)
		}

		for _, stmt := range []string{
			`DELETE FROM organization_memberships WHERE organization_id = $1`,
			`DELETE FROM api_keys WHERE organization_id = $1`,
			`DELETE FROM products WHERE organization_id = $1`,
			`DELETE FROM organizations WHERE id = $1`,
		} {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("deleting organization %s: %w", id, err)
			}
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
