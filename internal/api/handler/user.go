package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/membership"
	"github.com/meseeks-ai/meseeks/internal/user"
)

type userResponse struct {
	ID          string  `json:"id"`
	ClerkUserID *string `json:"clerkUserId"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		ClerkUserID: u.ClerkUserID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		CreatedAt:   formatTime(u.CreatedAt),
		UpdatedAt:   formatTime(u.UpdatedAt),
	}
}

// UserHandler handles read-only user endpoints. Users are written by the
// identity provider's webhooks and by first WhatsApp contact.
type UserHandler struct {
	users       user.Repository
	memberships membership.Repository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users user.Repository, memberships membership.Repository) *UserHandler {
	return &UserHandler{users: users, memberships: memberships}
}

// GetByID handles GET /users/{id}.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		slog.Error("failed to get user", "error", err, "id", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get user", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// ListMemberships handles GET /users/{id}/memberships.
func (h *UserHandler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuidParam(r, "id")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	members, err := h.memberships.ListByUser(r.Context(), id)
	if err != nil {
		slog.Error("failed to list user memberships", "error", err, "userId", id)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list memberships", requestID)
		return
	}

	items := toMembershipResponses(members)
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}
