package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/metrics"
	"github.com/meseeks-ai/meseeks/internal/whatsapp"
)

const sourceWhatsApp = "whatsapp"

// MessageDispatcher answers the subscription handshake and processes notifications.
type MessageDispatcher interface {
	VerifyChallenge(mode, token, challenge string) string
	Dispatch(ctx context.Context, w *whatsapp.Webhook)
}

// WhatsAppWebhookHandler handles GET and POST /webhooks/whatsapp.
type WhatsAppWebhookHandler struct {
	dispatcher MessageDispatcher
}

// NewWhatsAppWebhookHandler creates a new WhatsAppWebhookHandler.
func NewWhatsAppWebhookHandler(dispatcher MessageDispatcher) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{dispatcher: dispatcher}
}

// Verify handles GET /webhooks/whatsapp. The provider reads only the body,
// so success and failure are both 200.
func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := h.dispatcher.VerifyChallenge(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("whatsapp webhook: failed to write challenge response", "error", err)
	}
}

// Receive handles POST /webhooks/whatsapp. Once the body parses the
// delivery is acknowledged whatever happens downstream; stage failures are
// logged and counted by the dispatcher.
func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	start := time.Now()
	defer func() {
		metrics.WebhookDuration.WithLabelValues(sourceWhatsApp).Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_BODY", "Request body could not be read", requestID)
		return
	}

	notification, err := whatsapp.ParseWebhook(body)
	if err != nil {
		slog.Warn("whatsapp webhook: invalid payload", "error", err, "requestId", requestID)
		metrics.WebhookEvents.WithLabelValues(sourceWhatsApp, "unknown", metrics.OutcomeRejected).Inc()
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	msgType := whatsapp.TypeLabel("")
	if msg, ok := notification.FirstMessage(); ok {
		msgType = whatsapp.TypeLabel(msg.Type)
	}

	// The reply flow outlives a provider that hangs up early.
	h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), notification)

	metrics.WebhookEvents.WithLabelValues(sourceWhatsApp, msgType, metrics.OutcomeProcessed).Inc()
	response.Received(w)
}
