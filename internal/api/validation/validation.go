// Package validation checks decoded request bodies before they reach a repository.
package validation

import "regexp"

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}[a-z0-9]$`)
	roleRegex = regexp.MustCompile(`^[a-z][a-z0-9:_-]{0,63}$`)
)

const maxNameLength = 255
