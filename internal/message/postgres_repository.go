package message

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a message.
func (r *PostgresRepository) Create(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO messages (user_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := r.pool.QueryRow(ctx, query, m.UserID, m.Role, m.Content).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListByUser returns the user's messages ordered by creation time ascending.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Message, error) {
	query := `
		SELECT id, user_id, role, content, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}
