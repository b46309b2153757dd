package validation

import (
	"strings"
	"time"
)

// CreateAPIKeyRequest mirrors the fields needed for create API key validation.
type CreateAPIKeyRequest struct {
	Name      string
	ExpiresAt *time.Time
}

// ValidateCreateAPIKeyRequest validates the fields of a create API key
// request. now is the reference for rejecting expiries in the past.
func ValidateCreateAPIKeyRequest(req CreateAPIKeyRequest, now time.Time) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		errs = append(errs, FieldError{Field: "expiresAt", Message: "expiresAt must be in the future"})
	}

	return errs
}
