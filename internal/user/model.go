package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table.
type User struct {
	ID          uuid.UUID
	ClerkUserID *string // nil until the identity provider reports the user
	Email       *string
	PhoneNumber *string // E.164
	FirstName   *string
	LastName    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile carries the identity-provider fields written by UpsertByClerkID.
// Every pointer is written as given, so nil clears the stored value.
type Profile struct {
	ClerkUserID string
	Email       *string
	PhoneNumber *string
	FirstName   *string
	LastName    *string
}

// IsPlaceholder reports whether only the external id is known.
func (u *User) IsPlaceholder() bool {
	return u.Email == nil && u.PhoneNumber == nil && u.FirstName == nil && u.LastName == nil
}
