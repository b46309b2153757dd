package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meseeks-ai/meseeks/internal/metrics"
)

// KeyPrefix starts every generated key.
const KeyPrefix = "msk_"

const prefixLen = 8

// ErrInvalidKey is returned when the provided key matches no active, unexpired key.
var ErrInvalidKey = errors.New("invalid, revoked or expired API key")

// Service issues and authenticates organization API keys.
type Service struct {
	repo       Repository
	bcryptCost int
	now        func() time.Time
}

// NewService creates a new API key Service.
func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost, now: time.Now}
}

// GenerateKey creates a new raw key, its lookup prefix and its bcrypt hash.
// The raw key is: 32 random bytes -> base64url -> prepend "msk_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = KeyPrefix + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:prefixLen]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	return rawKey, prefix, string(hashBytes), nil
}

// Create issues a key for the organization. The raw key is returned here
// and never again.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, name string, expiresAt *time.Time) (*APIKey, string, error) {
	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	k := &APIKey{
		Name:           name,
		Prefix:         prefix,
		HashedKey:      hash,
		OrganizationID: organizationID,
		ExpiresAt:      expiresAt,
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, "", fmt.Errorf("creating api key: %w", err)
	}

	slog.Info("apikey: created", "keyId", k.ID, "organizationId", organizationID, "prefix", prefix)
	return k, rawKey, nil
}

// Authenticate resolves a raw key to its record. It looks up candidates by
// prefix and bcrypt-compares each one.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*APIKey, error) {
	if len(rawKey) < prefixLen {
		metrics.APIKeyAuthentications.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidKey
	}

	candidates, err := s.repo.FindActiveByPrefix(ctx, rawKey[:prefixLen])
	if err != nil {
		metrics.APIKeyAuthentications.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("finding api keys by prefix: %w", err)
	}

	now := s.now()
	for i := range candidates {
		k := &candidates[i]
		if !k.Usable(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(k.HashedKey), []byte(rawKey)) != nil {
			continue
		}

		if err := s.repo.TouchLastUsed(ctx, k.ID); err != nil {
			slog.Warn("apikey: failed to record last use", "keyId", k.ID, "error", err)
		}
		metrics.APIKeyAuthentications.WithLabelValues("valid").Inc()
		return k, nil
	}

	metrics.APIKeyAuthentications.WithLabelValues("invalid").Inc()
	return nil, ErrInvalidKey
}

// List returns the organization's keys.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID) ([]APIKey, error) {
	return s.repo.ListByOrganization(ctx, organizationID)
}

// Revoke deactivates a key without deleting it.
func (s *Service) Revoke(ctx context.Context, organizationID, id uuid.UUID) error {
	return s.repo.Revoke(ctx, organizationID, id)
}

// Delete removes a key.
func (s *Service) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	return s.repo.Delete(ctx, organizationID, id)
}
