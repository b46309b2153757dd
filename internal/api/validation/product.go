package validation

import (
	"strings"
)

const maxDescriptionLength = 2000

// CreateProductRequest mirrors the fields needed for create product validation.
type CreateProductRequest struct {
	Name        string
	Description *string
	PriceCents  int64
}

// ValidateCreateProductRequest validates the fields of a create product request.
func ValidateCreateProductRequest(req CreateProductRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	errs = append(errs, validateDescription(req.Description)...)
	errs = append(errs, validatePrice(req.PriceCents)...)
	return errs
}

// UpdateProductRequest mirrors the optional fields of a product update.
type UpdateProductRequest struct {
	Name        *string
	Description *string
	PriceCents  *int64
}

// ValidateUpdateProductRequest validates a partial product update. At least
// one field must be present.
func ValidateUpdateProductRequest(req UpdateProductRequest) []FieldError {
	if req.Name == nil && req.Description == nil && req.PriceCents == nil {
		return []FieldError{{Field: "body", Message: "at least one of name, description or priceCents is required"}}
	}

	var errs []FieldError
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			errs = append(errs, FieldError{Field: "name", Message: "name must not be empty"})
		} else if len(name) > maxNameLength {
			errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
		}
	}
	errs = append(errs, validateDescription(req.Description)...)
	if req.PriceCents != nil {
		errs = append(errs, validatePrice(*req.PriceCents)...)
	}
	return errs
}

func validateDescription(d *string) []FieldError {
	if d != nil && len(*d) > maxDescriptionLength {
		return []FieldError{{Field: "description", Message: "description must be at most 2000 characters"}}
	}
	return nil
}

func validatePrice(cents int64) []FieldError {
	if cents < 0 {
		return []FieldError{{Field: "priceCents", Message: "priceCents must not be negative"}}
	}
	return nil
}
