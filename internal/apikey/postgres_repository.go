package apikey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const apiKeyColumns = `id, name, prefix, hashed_key, organization_id, expires_at, is_active, last_used_at, created_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanAPIKey(row pgx.Row) (*APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.Name, &k.Prefix, &k.HashedKey, &k.OrganizationID,
		&k.ExpiresAt, &k.IsActive, &k.LastUsedAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// Create inserts a new API key record.
func (r *PostgresRepository) Create(ctx context.Context, k *APIKey) error {
	query := `
		INSERT INTO api_keys (name, prefix, hashed_key, organization_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at`

	err := r.pool.QueryRow(ctx, query, k.Name, k.Prefix, k.HashedKey, k.OrganizationID, k.ExpiresAt).
		Scan(&k.ID, &k.IsActive, &k.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting api key: %w", err)
	}
	return nil
}

// FindActiveByPrefix returns active, unexpired keys matching the given prefix.
func (r *PostgresRepository) FindActiveByPrefix(ctx context.Context, prefix string) ([]APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys
		WHERE prefix = $1 AND is_active AND (expires_at IS NULL OR expires_at > NOW())`

	return r.list(ctx, query, prefix)
}

// ListByOrganization returns the organization's keys, newest first.
func (r *PostgresRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys
		WHERE organization_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, organizationID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	keys := []APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		keys = append(keys, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}
	return keys, nil
}

// Revoke deactivates a key. Revoking an inactive key succeeds.
func (r *PostgresRepository) Revoke(ctx context.Context, organizationID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// Delete removes a key.
func (r *PostgresRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE id = $1 AND organization_id = $2`, id, organizationID)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// TouchLastUsed records a successful authentication.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}
