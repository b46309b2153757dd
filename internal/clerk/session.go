package clerk

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSessionDisabled is returned when no session public key is configured.
var ErrSessionDisabled = errors.New("session verification not configured")

// ErrInvalidSession is returned for any token that fails verification.
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	OrgID   string `json:"org_id,omitempty"`
	OrgRole string `json:"org_role,omitempty"`
}

// UserID returns the identity-provider user id (the token subject).
func (c *SessionClaims) UserID() string {
	return c.Subject
}

// SessionVerifier validates RS256 session tokens against a PEM public key.
type SessionVerifier struct {
	key    *rsa.PublicKey
	issuer string
}

// NewSessionVerifier parses the PEM public key. An empty key disables
// session authentication; Verify then returns ErrSessionDisabled.
func NewSessionVerifier(publicKeyPEM, issuer string) (*SessionVerifier, error) {
	v := &SessionVerifier{issuer: issuer}
	if publicKeyPEM == "" {
		return v, nil
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parsing session public key: %w", err)
	}
	v.key = key
	return v, nil
}

// Enabled reports whether a public key is configured.
func (v *SessionVerifier) Enabled() bool {
	return v != nil && v.key != nil
}

// Verify parses and validates a raw session token.
func (v *SessionVerifier) Verify(raw string) (*SessionClaims, error) {
	if !v.Enabled() {
		return nil, ErrSessionDisabled
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
