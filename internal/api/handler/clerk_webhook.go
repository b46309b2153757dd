package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/meseeks-ai/meseeks/internal/api/middleware"
	"github.com/meseeks-ai/meseeks/internal/api/response"
	"github.com/meseeks-ai/meseeks/internal/clerk"
	"github.com/meseeks-ai/meseeks/internal/delivery"
	"github.com/meseeks-ai/meseeks/internal/metrics"
)

const sourceClerk = "clerk"

// SignatureVerifier authenticates a webhook body against its headers.
type SignatureVerifier interface {
	Verify(header http.Header, body []byte) error
}

// EventReconciler applies a classified identity event.
type EventReconciler interface {
	Reconcile(ctx context.Context, ev clerk.Event) error
}

// ClerkWebhookHandler handles POST /webhooks/clerk.
type ClerkWebhookHandler struct {
	verifier   SignatureVerifier
	reconciler EventReconciler
	tracker    delivery.Tracker
}

// NewClerkWebhookHandler creates a new ClerkWebhookHandler. A nil tracker
// disables duplicate suppression. A delivery is recorded as processed only
// once Reconcile returned nil.
func NewClerkWebhookHandler(verifier SignatureVerifier, reconciler EventReconciler, tracker delivery.Tracker) *ClerkWebhookHandler {
	if tracker == nil {
		tracker = delivery.Noop{}
	}
	return &ClerkWebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
		tracker:    tracker,
	}
}

// ServeHTTP verifies, classifies and reconciles one delivery. Nothing is
// decoded before the signature over the exact received bytes checks out.
func (h *ClerkWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	start := time.Now()
	defer func() {
		metrics.WebhookDuration.WithLabelValues(sourceClerk).Observe(time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("clerk webhook: failed to read body", "error", err, "requestId", requestID)
		response.Err(w, http.StatusBadRequest, "INVALID_BODY", "Request body could not be read", requestID)
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		if errors.Is(err, clerk.ErrMissingSecret) {
			slog.Error("clerk webhook: signing secret is not configured", "requestId", requestID)
		} else {
			slog.Warn("clerk webhook: signature verification failed", "error", err, "requestId", requestID)
		}
		metrics.WebhookEvents.WithLabelValues(sourceClerk, "unknown", metrics.OutcomeRejected).Inc()
		response.Err(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Webhook signature verification failed", requestID)
		return
	}

	var env clerk.Envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Type == "" {
		slog.Warn("clerk webhook: body is not an event envelope", "error", err, "requestId", requestID)
		metrics.WebhookEvents.WithLabelValues(sourceClerk, "unknown", metrics.OutcomeDiscarded).Inc()
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a webhook event envelope", requestID)
		return
	}

	ev, err := clerk.ClassifyEnvelope(&env)
	if err != nil {
		eventType := env.Type
		if errors.Is(err, clerk.ErrUnknownEvent) {
			eventType = "unknown"
			slog.Warn("clerk webhook: ignoring unhandled event type", "event", env.Type, "requestId", requestID)
		} else {
			slog.Warn("clerk webhook: discarding malformed event", "event", env.Type, "error", err, "requestId", requestID)
		}
		metrics.WebhookEvents.WithLabelValues(sourceClerk, eventType, metrics.OutcomeDiscarded).Inc()
		response.Received(w)
		return
	}

	deliveryID := r.Header.Get(clerk.HeaderID)
	seen, err := h.tracker.Seen(r.Context(), deliveryID)
	if err != nil {
		// Processing twice is safe; every mutation is an idempotent upsert or delete.
		slog.Warn("clerk webhook: delivery tracker unavailable", "error", err, "deliveryId", deliveryID)
		seen = false
	}
	if seen {
		slog.Info("clerk webhook: duplicate delivery acknowledged", "event", env.Type, "deliveryId", deliveryID)
		metrics.WebhookEvents.WithLabelValues(sourceClerk, env.Type, metrics.OutcomeDuplicate).Inc()
		response.Received(w)
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), ev); err != nil {
		metrics.WebhookEvents.WithLabelValues(sourceClerk, env.Type, metrics.OutcomeFailed).Inc()
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process webhook event", requestID)
		return
	}

	if err := h.tracker.Record(context.WithoutCancel(r.Context()), deliveryID); err != nil {
		slog.Warn("clerk webhook: failed to record delivery", "error", err, "deliveryId", deliveryID)
	}

	slog.Info("clerk webhook: event processed", "event", env.Type, "externalId", ev.ExternalID(), "deliveryId", deliveryID)
	metrics.WebhookEvents.WithLabelValues(sourceClerk, env.Type, metrics.OutcomeProcessed).Inc()
	response.Received(w)
}
