package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const membershipColumns = `id, user_id, organization_id, role, clerk_membership_id, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role,
		&m.ClerkMembershipID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert creates the membership for the pair or updates its role.
// The clerk membership id is only replaced when a new one is given.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, organizationID uuid.UUID, role string, clerkMembershipID *string) (*Membership, error) {
	query := `
		INSERT INTO organization_memberships (user_id, organization_id, role, clerk_membership_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET
			role                = EXCLUDED.role,
			clerk_membership_id = COALESCE(EXCLUDED.clerk_membership_id, organization_memberships.clerk_membership_id),
			updated_at          = NOW()
		RETURNING ` + membershipColumns

	m, err := scanMembership(r.pool.QueryRow(ctx, query, userID, organizationID, role, clerkMembershipID))
	if err != nil {
		return nil, fmt.Errorf("upserting membership: %w", err)
	}
	return m, nil
}

// Get retrieves the membership for a user/organization pair.
func (r *PostgresRepository) Get(ctx context.Context, userID, organizationID uuid.UUID) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM organization_memberships
		WHERE user_id = $1 AND organization_id = $2`

	m, err := scanMembership(r.pool.QueryRow(ctx, query, userID, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("querying membership: %w", err)
	}
	return m, nil
}

// UpdateRole changes the role of an existing membership.
func (r *PostgresRepository) UpdateRole(ctx context.Context, userID, organizationID uuid.UUID, role string) (*Membership, error) {
	query := `
		UPDATE organization_memberships
		SET role = $3, updated_at = NOW()
		WHERE user_id = $1 AND organization_id = $2
		RETURNING ` + membershipColumns

	m, err := scanMembership(r.pool.QueryRow(ctx, query, userID, organizationID, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("updating membership role: %w", err)
	}
	return m, nil
}

// DeleteByPair removes every membership row for the pair and returns how many were removed.
func (r *PostgresRepository) DeleteByPair(ctx context.Context, userID, organizationID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM organization_memberships WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID)
	if err != nil {
		return 0, fmt.Errorf("deleting membership: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListByOrganization returns the memberships of an organization, oldest first.
func (r *PostgresRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Membership, error) {
	return r.list(ctx, "organization_id = $1", organizationID)
}

// ListByUser returns the memberships held by a user, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	return r.list(ctx, "user_id = $1", userID)
}

func (r *PostgresRepository) list(ctx context.Context, where string, arg any) ([]Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM organization_memberships
		WHERE ` + where + ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		memberships = append(memberships, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating membership rows: %w", err)
	}
	return memberships, nil
}
