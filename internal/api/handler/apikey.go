package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/api/validation"
	"github.com/meseeks-ai/meseeks/internal/apikey"
)

// APIKeyService manages organization API keys.
type APIKeyService interface {
	Create(ctx context.Context, organizationID uuid.UUID, name string, expiresAt *time.Time) (*apikey.APIKey, string, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]apikey.APIKey, error)
	Revoke(ctx context.Context, organizationID, id uuid.UUID) error
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

type createAPIKeyRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type apiKeyResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Prefix         string  `json:"prefix"`
	OrganizationID string  `json:"organizationId"`
	ExpiresAt      *string `json:"expiresAt"`
	IsActive       bool    `json:"isActive"`
	LastUsedAt     *string `json:"lastUsedAt"`
	CreatedAt      string  `json:"createdAt"`
}

type createAPIKeyResponse struct {
	apiKeyResponse
	Key string `json:"key"`
}

func toAPIKeyResponse(k *apikey.APIKey) apiKeyResponse {
	return apiKeyResponse{
		ID:             k.ID.String(),
		Name:           k.Name,
		Prefix:         k.Prefix,
		OrganizationID: k.OrganizationID.String(),
		ExpiresAt:      formatOptionalTime(k.ExpiresAt),
		IsActive:       k.IsActive,
		LastUsedAt:     formatOptionalTime(k.LastUsedAt),
		CreatedAt:      formatTime(k.CreatedAt),
	}
}

// APIKeyHandler handles /organizations/{id}/api-keys endpoints.
type APIKeyHandler struct {
	keys APIKeyService
	now  func() time.Time
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, now: time.Now}
}

// Create handles POST /organizations/{id}/api-keys. The raw key is only
// ever returned here.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	var req createAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateAPIKeyRequest(validation.CreateAPIKeyRequest{
		Name:      req.Name,
		ExpiresAt: req.ExpiresAt,
	}, h.now())
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	k, rawKey, err := h.keys.Create(r.Context(), orgID, strings.TrimSpace(req.Name), req.ExpiresAt)
	if err != nil {
		slog.Error("failed to create api key", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create API key", requestID)
		return
	}

	response.Success(w, http.StatusCreated, createAPIKeyResponse{
		apiKeyResponse: toAPIKeyResponse(k),
		Key:            rawKey,
	}, requestID)
}

// List handles GET /organizations/{id}/api-keys.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	keys, err := h.keys.List(r.Context(), orgID)
	if err != nil {
		slog.Error("failed to list api keys", "error", err, "organizationId", orgID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list API keys", requestID)
		return
	}

	items := make([]apiKeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, toAPIKeyResponse(&keys[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Revoke handles POST /organizations/{id}/api-keys/{keyId}/revoke.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "revoke", h.keys.Revoke)
}

// Delete handles DELETE /organizations/{id}/api-keys/{keyId}.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "delete", h.keys.Delete)
}

func (h *APIKeyHandler) mutate(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, organizationID, id uuid.UUID) error) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}
	keyID, err := uuidParam(r, "keyId")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "keyId must be a valid UUID", requestID)
		return
	}

	if err := fn(r.Context(), orgID, keyID); err != nil {
		if errors.Is(err, apikey.ErrAPIKeyNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "API key not found", requestID)
			return
		}
		slog.Error("failed to "+action+" api key", "error", err, "organizationId", orgID, "keyId", keyID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+action+" API key", requestID)
		return
	}

	response.NoContent(w)
}
