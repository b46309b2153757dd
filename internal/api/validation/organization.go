package validation

import (
	"strings"
)

// CreateOrganizationRequest mirrors the fields needed for create organization validation.
type CreateOrganizationRequest struct {
	Name string
	Slug string
}

// ValidateCreateOrganizationRequest validates the fields of a create organization request.
func ValidateCreateOrganizationRequest(req CreateOrganizationRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	if req.Slug == "" {
		errs = append(errs, FieldError{Field: "slug", Message: "slug is required"})
	} else if !slugRegex.MatchString(req.Slug) {
		errs = append(errs, FieldError{Field: "slug", Message: "slug must be lowercase alphanumeric with hyphens, 2-64 characters"})
	}

	return errs
}

// ValidateRole validates a membership role update.
func ValidateRole(role string) []FieldError {
	if role == "" {
		return []FieldError{{Field: "role", Message: "role is required"}}
	}
	if !roleRegex.MatchString(role) {
		return []FieldError{{Field: "role", Message: "role must be lowercase letters, digits, ':', '_' or '-', at most 64 characters"}}
	}
	return nil
}
