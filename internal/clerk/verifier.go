package clerk

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Signature headers sent with every webhook delivery.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

var (
	// ErrMissingSecret means the server has no webhook secret configured.
	// It is a misconfiguration, not an authentication failure.
	ErrMissingSecret = errors.New("clerk webhook secret not configured")

	// ErrMissingHeaders is returned when any signature header is absent.
	ErrMissingHeaders = errors.New("missing webhook signature headers")

	// ErrInvalidSignature is returned when no provided signature matches or
	// the delivery timestamp is outside the replay window.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Verifier checks that a webhook body was signed with the shared secret.
// The signature scheme and the replay window are those of the svix library.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier builds a Verifier from a "whsec_"-prefixed base64 secret.
// An empty secret yields a Verifier whose Verify always returns ErrMissingSecret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return &Verifier{}, nil
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("decoding webhook secret: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Verify checks the signature headers against the exact body bytes received.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	if v.wh == nil {
		return ErrMissingSecret
	}
	if header.Get(HeaderID) == "" || header.Get(HeaderTimestamp) == "" || header.Get(HeaderSignature) == "" {
		return ErrMissingHeaders
	}

	if err := v.wh.Verify(body, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the "v1,<base64>" signature for a delivery. Used to build test
// fixtures and by local tooling that replays deliveries.
func (v *Verifier) Sign(id string, timestamp time.Time, body []byte) (string, error) {
	if v.wh == nil {
		return "", ErrMissingSecret
	}
	return v.wh.Sign(id, timestamp, body)
}
