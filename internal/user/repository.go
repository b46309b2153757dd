package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicatePhone is returned when a phone number already belongs to another user.
var ErrDuplicatePhone = errors.New("phone number already in use")

// Repository provides operations on the users table.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByClerkID(ctx context.Context, clerkUserID string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	UpsertByClerkID(ctx context.Context, p Profile) (*User, error)
	EnsureByClerkID(ctx context.Context, clerkUserID string) error
	UpsertByPhone(ctx context.Context, phone string) (*User, error)
	DeleteByClerkID(ctx context.Context, clerkUserID string) (bool, error)
}
