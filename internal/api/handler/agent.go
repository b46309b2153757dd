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
	"github.com/meseeks-ai/meseeks/internal/message"
	"github.com/meseeks-ai/meseeks/internal/openai"
)

// Assistant runs the web chat conversation.
type Assistant interface {
	Reply(ctx context.Context, userID uuid.UUID, input string) (string, error)
	History(ctx context.Context, userID uuid.UUID) ([]message.Message, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// AgentHandler handles /agent/chat endpoints for signed-in users.
type AgentHandler struct {
	assistant Assistant
	users     SessionUsers
	now       func() time.Time
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(assistant Assistant, users SessionUsers) *AgentHandler {
	return &AgentHandler{assistant: assistant, users: users, now: time.Now}
}

// SendMessage handles POST /agent/chat/message.
func (h *AgentHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if fieldErrors := validation.ValidateChatMessage(req.Message); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	userID, err := sessionUserID(r.Context(), h.users, middleware.GetIdentity(r.Context()))
	if err != nil {
		slog.Error("failed to resolve session user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to send message", requestID)
		return
	}

	reply, err := h.assistant.Reply(r.Context(), userID, strings.TrimSpace(req.Message))
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			response.Err(w, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "The assistant is not configured", requestID)
			return
		}
		slog.Error("failed to generate reply", "error", err, "userId", userID)
		response.Err(w, http.StatusBadGateway, "ASSISTANT_ERROR", "The assistant could not answer", requestID)
		return
	}

	response.Success(w, http.StatusOK, chatResponse{
		Message:   reply,
		Timestamp: formatTime(h.now()),
	}, requestID)
}

// ListMessages handles GET /agent/chat/messages.
func (h *AgentHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	userID, err := sessionUserID(r.Context(), h.users, middleware.GetIdentity(r.Context()))
	if err != nil {
		slog.Error("failed to resolve session user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list messages", requestID)
		return
	}

	history, err := h.assistant.History(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list messages", "error", err, "userId", userID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list messages", requestID)
		return
	}

	items := make([]messageResponse, 0, len(history))
	for _, m := range history {
		items = append(items, messageResponse{
			ID:        m.ID.String(),
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: formatTime(m.CreatedAt),
		})
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}
