package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/api/validation"
	"github.com/meseeks-ai/meseeks/internal/auth"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/organization"
)

// CreatorRole is the membership role given to whoever creates an organization.
const CreatorRole = "org:admin"

type createOrganizationRequest struct {
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	ImageURL *string `json:"imageUrl"`
}

type updateMemberRequest struct {
	Role string `json:"role"`
}

type organizationResponse struct {
	ID                  string  `json:"id"`
	ClerkOrganizationID *string `json:"clerkOrganizationId"`
	Name                string  `json:"name"`
	Slug                string  `json:"slug"`
	ImageURL            *string `json:"imageUrl"`
	LogoURL             *string `json:"logoUrl"`
	CreatedBy           *string `json:"createdBy"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

func toOrganizationResponse(o *organization.Organization) organizationResponse {
	return organizationResponse{
		ID:                  o.ID.String(),
		ClerkOrganizationID: o.ClerkOrganizationID,
		Name:                o.Name,
		Slug:                o.Slug,
		ImageURL:            o.ImageURL,
		LogoURL:             o.LogoURL,
		CreatedBy:           o.CreatedBy,
		CreatedAt:           formatTime(o.CreatedAt),
		UpdatedAt:           formatTime(o.UpdatedAt),
	}
}

type membershipResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"userId"`
	OrganizationID    string  `json:"organizationId"`
	Role              string  `json:"role"`
	ClerkMembershipID *string `json:"clerkMembershipId"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

func toMembershipResponse(m *membership.Membership) membershipResponse {
	return membershipResponse{
		ID:                m.ID.String(),
		UserID:            m.UserID.String(),
		OrganizationID:    m.OrganizationID.String(),
		Role:              m.Role,
		ClerkMembershipID: m.ClerkMembershipID,
		CreatedAt:         formatTime(m.CreatedAt),
		UpdatedAt:         formatTime(m.UpdatedAt),
	}
}

func toMembershipResponses(ms []membership.Membership) []membershipResponse {
	items := make([]membershipResponse, 0, len(ms))
	for i := range ms {
		items = append(items, toMembershipResponse(&ms[i]))
	}
	return items
}

// OrganizationHandler handles organization and member endpoints.
type OrganizationHandler struct {
	orgs        organization.Repository
	memberships membership.Repository
	users       SessionUsers
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgs organization.Repository, memberships membership.Repository, users SessionUsers) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs, memberships: memberships, users: users}
}

// Create handles POST /organizations. The caller becomes the first admin.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateOrganizationRequest(validation.CreateOrganizationRequest{
		Name: req.Name,
		Slug: req.Slug,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	identity := middleware.GetIdentity(r.Context())
	userID, err := sessionUserID(r.Context(), h.users, identity)
	if err != nil {
		slog.Error("failed to resolve session user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create organization", requestID)
		return
	}

	o := &organization.Organization{
		Name:      strings.TrimSpace(req.Name),
		Slug:      req.Slug,
		ImageURL:  req.ImageURL,
		CreatedBy: &identity.ClerkUserID,
	}
	if err := h.orgs.Create(r.Context(), o); err != nil {
		slog.Error("failed to create organization", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create organization", requestID)
		return
	}

	if _, err := h.memberships.Upsert(r.Context(), userID, o.ID, CreatorRole, nil); err != nil {
		slog.Error("failed to add organization creator", "error", err, "organizationId", o.ID)
		if delErr := h.orgs.Delete(r.Context(), o.ID); delErr != nil {
			slog.Error("failed to roll back organization", "error", delErr, "organizationId", o.ID)
		}
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create organization", requestID)
		return
	}

	response.Success(w, http.StatusCreated, toOrganizationResponse(o), requestID)
}

// List handles GET /organizations. API keys see their own organization,
// sessions see the organizations they belong to.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	var (
		orgs []organization.Organization
		err  error
	)
	switch {
	case identity != nil && identity.Method == auth.MethodAPIKey && identity.OrganizationID != nil:
		var o *organization.Organization
		o, err = h.orgs.GetByID(r.Context(), *identity.OrganizationID)
		if err == nil {
			orgs = []organization.Organization{*o}
		}
	case identity != nil && identity.UserID != nil:
		orgs, err = h.orgs.ListByMember(r.Context(), *identity.UserID)
	}
	if err != nil {
		slog.Error("failed to list organizations", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list organizations", requestID)
		return
	}

	items := make([]organizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, toOrganizationResponse(&orgs[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByID handles GET /organizations/{id}.
func (h *OrganizationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	o, err := h.orgs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, organization.ErrOrganizationNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
			return
		}
		slog.Error("failed to get organization", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get organization", requestID)
		return
	}

	response.Success(w, http.StatusOK, toOrganizationResponse(o), requestID)
}

// Delete handles DELETE /organizations/{id}. Memberships, keys and
// products go with it.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	if err := h.orgs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, organization.ErrOrganizationNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
			return
		}
		slog.Error("failed to delete organization", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete organization", requestID)
		return
	}

	response.NoContent(w)
}

// ListMembers handles GET /organizations/{id}/members.
func (h *OrganizationHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	members, err := h.memberships.ListByOrganization(r.Context(), id)
	if err != nil {
		slog.Error("failed to list members", "error", err, "organizationId", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list members", requestID)
		return
	}

	items := toMembershipResponses(members)
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// UpdateMemberRole handles PATCH /organizations/{id}/members/{userId}.
func memberParams(w http.ResponseWriter, r *http.Request, requestID string) (orgID, userID uuid.UUID, ok bool) {
	orgID, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuidParam(r, "userId")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "userId must be a valid UUID", requestID)
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, userID, true
}

// GetMember handles GET /organizations/{id}/members/{userId}.
func (h *OrganizationHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, userID, ok := memberParams(w, r, requestID)
	if !ok {
		return
	}

	m, err := h.memberships.Get(r.Context(), userID, orgID)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Membership not found", requestID)
			return
		}
		slog.Error("failed to get membership", "error", err, "organizationId", orgID, "userId", userID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get membership", requestID)
		return
	}

	response.Success(w, http.StatusOK, toMembershipResponse(m), requestID)
}

// RemoveMember handles DELETE /organizations/{id}/members/{userId}.
func (h *OrganizationHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, userID, ok := memberParams(w, r, requestID)
	if !ok {
		return
	}

	removed, err := h.memberships.DeleteByPair(r.Context(), userID, orgID)
	if err != nil {
		slog.Error("failed to remove member", "error", err, "organizationId", orgID, "userId", userID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove member", requestID)
		return
	}
	if removed == 0 {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Membership not found", requestID)
		return
	}

	slog.Info("member removed", "organizationId", orgID, "userId", userID)
	response.NoContent(w)
}

func (h *OrganizationHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, userID, ok := memberParams(w, r, requestID)
	if !ok {
		return
	}

	var req updateMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if fieldErrors := validation.ValidateRole(req.Role); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	m, err := h.memberships.UpdateRole(r.Context(), userID, orgID, req.Role)
	if err != nil {
		if errors.Is(err, membership.ErrMembershipNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Membership not found", requestID)
			return
		}
		slog.Error("failed to update member role", "error", err, "organizationId", orgID, "userId", userID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update member role", requestID)
		return
	}

	response.Success(w, http.StatusOK, toMembershipResponse(m), requestID)
}
