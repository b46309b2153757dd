package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meseeks-ai/meseeks/internal/database"
)

const userColumns = `id, clerk_user_id, email, phone_number, first_name, last_name, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ClerkUserID, &u.Email, &u.PhoneNumber,
		&u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a single user by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// FindByClerkID retrieves a user by its identity-provider id.
func (r *PostgresRepository) FindByClerkID(ctx context.Context, clerkUserID string) (*User, error) {
	return r.getOne(ctx, "clerk_user_id = $1", clerkUserID)
}

// FindByPhone retrieves a user by E.164 phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return r.getOne(ctx, "phone_number = $1", phone)
}

// UpsertByClerkID creates the user or fully replaces its profile fields.
//
// A phone number first seen over WhatsApp belongs to a row without an
// identity-provider id. That row is adopted: it takes the Clerk id and
// profile, and any row already holding the Clerk id is merged into it with
// its memberships and messages. A phone number held by a different Clerk
// user is not stored and a warning is logged.
func (r *PostgresRepository) UpsertByClerkID(ctx context.Context, p Profile) (*User, error) {
	var u *User
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		u, err = upsertByClerkID(ctx, tx, p)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("upserting user %s: %w", p.ClerkUserID, ErrDuplicatePhone)
		}
		return nil, fmt.Errorf("upserting user: %w", err)
	}
	return u, nil
}

func upsertByClerkID(ctx context.Context, tx pgx.Tx, p Profile) (*User, error) {
	if p.PhoneNumber != nil {
		var ownerID uuid.UUID
		var ownerClerkID *string
		err := tx.QueryRow(ctx,
			`SELECT id, clerk_user_id FROM users WHERE phone_number = $1 FOR UPDATE`,
			*p.PhoneNumber,
		).Scan(&ownerID, &ownerClerkID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return nil, fmt.Errorf("locking phone owner: %w", err)
		case ownerClerkID == nil:
			return adoptPhoneOwner(ctx, tx, ownerID, p)
		case *ownerClerkID != p.ClerkUserID:
			slog.Warn("phone number belongs to another user; not storing it",
				"clerkUserId", p.ClerkUserID, "ownerClerkUserId", *ownerClerkID)
			p.PhoneNumber = nil
		}
	}

	query := `
		INSERT INTO users (clerk_user_id, email, phone_number, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clerk_user_id) DO UPDATE SET
			email        = EXCLUDED.email,
			phone_number = EXCLUDED.phone_number,
			first_name   = EXCLUDED.first_name,
			last_name    = EXCLUDED.last_name,
			updated_at   = NOW()
		RETURNING ` + userColumns

	return scanUser(tx.QueryRow(ctx, query,
		p.ClerkUserID, p.Email, p.PhoneNumber, p.FirstName, p.LastName,
	))
}

// adoptPhoneOwner gives the phone-keyed row ownerID the Clerk identity in p.
func adoptPhoneOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, p Profile) (*User, error) {
	var existingID uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM users WHERE clerk_user_id = $1 FOR UPDATE`, p.ClerkUserID,
	).Scan(&existingID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("locking clerk user: %w", err)
	default:
		if err := mergeInto(ctx, tx, existingID, ownerID); err != nil {
			return nil, err
		}
	}

	query := `
		UPDATE users SET
			clerk_user_id = $2,
			email         = $3,
			first_name    = $4,
			last_name     = $5,
			updated_at    = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(tx.QueryRow(ctx, query, ownerID, p.ClerkUserID, p.Email, p.FirstName, p.LastName))
	if err != nil {
		return nil, err
	}
	slog.Info("linked whatsapp user to identity", "userId", u.ID, "clerkUserId", p.ClerkUserID)
	return u, nil
}

// mergeInto moves memberships and messages from the row from to the row to,
// then deletes from. A membership already held by from wins over one held by
// to for the same organization.
func mergeInto(ctx context.Context, tx pgx.Tx, from, to uuid.UUID) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM organization_memberships
		WHERE user_id = $2
		  AND organization_id IN (SELECT organization_id FROM organization_memberships WHERE user_id = $1)`,
		from, to); err != nil {
		return fmt.Errorf("dropping superseded memberships: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE organization_memberships SET user_id = $2 WHERE user_id = $1`, from, to); err != nil {
		return fmt.Errorf("moving memberships: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE messages SET user_id = $2 WHERE user_id = $1`, from, to); err != nil {
		return fmt.Errorf("moving messages: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, from); err != nil {
		return fmt.Errorf("deleting merged user: %w", err)
	}
	return nil
}

// EnsureByClerkID creates a placeholder carrying only the identity-provider id.
// An existing row, placeholder or populated, is left untouched.
func (r *PostgresRepository) EnsureByClerkID(ctx context.Context, clerkUserID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (clerk_user_id) VALUES ($1)
		ON CONFLICT (clerk_user_id) DO NOTHING`, clerkUserID)
	if err != nil {
		return fmt.Errorf("ensuring user %s: %w", clerkUserID, err)
	}
	return nil
}

// UpsertByPhone returns the user owning the phone number, creating a bare
// record when none exists. Existing fields are left untouched.
func (r *PostgresRepository) UpsertByPhone(ctx context.Context, phone string) (*User, error) {
	query := `
		INSERT INTO users (phone_number)
		VALUES ($1)
		ON CONFLICT (phone_number) DO UPDATE SET updated_at = users.updated_at
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		return nil, fmt.Errorf("upserting user by phone: %w", err)
	}
	return u, nil
}

// DeleteByClerkID removes the user and reports whether a row existed.
// Memberships and messages cascade.
func (r *PostgresRepository) DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE clerk_user_id = $1`, clerkUserID)
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
