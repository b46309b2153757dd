// Package notify publishes identity change notifications after a webhook
// event has been reconciled.
package notify

import (
	"context"
	"time"
)

// Change describes one reconciled identity event.
type Change struct {
	Type       string    `json:"type"`
	ExternalID string    `json:"externalId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier publishes changes. Implementations must be safe for concurrent use.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
}

// Noop discards every change. Used when no broker is configured.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, Change) error { return nil }
