package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/api/validation"
	"github.com/meseeks-ai/meseeks/internal/product"
)

type createProductRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	PriceCents  int64   `json:"priceCents"`
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"priceCents"`
}

type productResponse struct {
	ID             string  `json:"id"`
	OrganizationID string  `json:"organizationId"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	PriceCents     int64   `json:"priceCents"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:             p.ID.String(),
		OrganizationID: p.OrganizationID.String(),
		Name:           p.Name,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

// ProductHandler handles /organizations/{id}/products endpoints.
type ProductHandler struct {
	repo product.Repository
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(repo product.Repository) *ProductHandler {
	return &ProductHandler{repo: repo}
}

// Create handles POST /organizations/{id}/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	var req createProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateProductRequest(validation.CreateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	p := &product.Product{
		OrganizationID: orgID,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		PriceCents:     req.PriceCents,
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		if errors.Is(err, product.ErrDuplicateProductName) {
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("A product named %q already exists", p.Name), requestID)
			return
		}
		slog.Error("failed to create product", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create product", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toProductResponse(p), requestID)
}

// List handles GET /organizations/{id}/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	products, err := h.repo.ListByOrganization(r.Context(), orgID)
	if err != nil {
		slog.Error("failed to list products", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products", requestID)
		return
	}

	items := make([]productResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /organizations/{id}/products/{productId}.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, productID, ok := productParams(w, r, requestID)
	if !ok {
		return
	}

	p, err := h.repo.GetByID(r.Context(), orgID, productID)
	if err != nil {
		h.writeError(w, err, "get", requestID)
		return
	}

	response.Success(w, http.StatusOK, toProductResponse(p), requestID)
}

// Update handles PATCH /organizations/{id}/products/{productId}.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, productID, ok := productParams(w, r, requestID)
	if !ok {
		return
	}

	var req updateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateProductRequest(validation.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}

	p, err := h.repo.Update(r.Context(), orgID, productID, product.UpdateFields{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	})
	if err != nil {
		h.writeError(w, err, "update", requestID)
		return
	}

	response.Success(w, http.StatusOK, toProductResponse(p), requestID)
}

// Delete handles DELETE /organizations/{id}/products/{productId}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, productID, ok := productParams(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), orgID, productID); err != nil {
		h.writeError(w, err, "delete", requestID)
		return
	}

	response.NoContent(w)
}

func productParams(w http.ResponseWriter, r *http.Request, requestID string) (orgID, productID uuid.UUID, ok bool) {
	o, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return orgID, productID, false
	}
	p, err := uuidParam(r, "productId")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "productId must be a valid UUID", requestID)
		return orgID, productID, false
	}
	return o, p, true
}

func (h *ProductHandler) writeError(w http.ResponseWriter, err error, action, requestID string) {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Product not found", requestID)
	case errors.Is(err, product.ErrDuplicateProductName):
		response.Err(w, http.StatusConflict, "DUPLICATE_NAME", "A product with this name already exists", requestID)
	default:
		slog.Error("failed to "+action+" product", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action+" product", requestID)
	}
}
