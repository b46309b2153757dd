package message

import (
	"time"

	"github.com/google/uuid"
)

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn owned by a user.
type Message struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Role      Role
	Content   string
	CreatedAt time.Time
}
