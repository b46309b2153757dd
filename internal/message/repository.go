package message

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides operations on the messages table.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	// ListByUser returns the user's messages oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Message, error)
}
