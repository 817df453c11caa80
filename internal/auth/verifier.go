package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates an opaque bearer token against the identity
// provider. Implementations must be safe for concurrent use.
type TokenVerifier interface {
	// Verify returns the decoded claims for a valid token, (nil, nil) when
	// no token was supplied, or a typed *Error describing the failure.
	Verify(ctx context.Context, token string, checkRevocation bool) (*ClaimSet, error)
}

// RevocationChecker reports the identity provider's per-subject revocation
// watermark: tokens issued before that instant are revoked.
type RevocationChecker interface {
	TokensValidAfter(ctx context.Context, subject string) (time.Time, error)
}

// Config holds signer verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// JWTVerifier verifies HS256 tokens signed by the identity provider.
type JWTVerifier struct {
	cfg         Config
	revocations RevocationChecker
}

// NewJWTVerifier constructs a verifier. The revocation checker is consulted
// only when Verify is called with checkRevocation set.
func NewJWTVerifier(cfg Config, revocations RevocationChecker) *JWTVerifier {
	return &JWTVerifier{cfg: cfg, revocations: revocations}
}

// Verify implements TokenVerifier.
func (v *JWTVerifier) Verify(ctx context.Context, token string, checkRevocation bool) (*ClaimSet, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.cfg.Secret), nil
	}, jwt.WithIssuer(v.cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &Error{Reason: ReasonExpired, cause: err}
		}
		return nil, &Error{Reason: ReasonMalformed, cause: err}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, &Error{Reason: ReasonMalformed}
	}

	subject, _ := mapClaims["sub"].(string)
	if subject == "" {
		return nil, &Error{Reason: ReasonMalformed, cause: errors.New("missing subject")}
	}

	claims := &ClaimSet{
		Subject: subject,
		Custom:  map[string]any(mapClaims),
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	if checkRevocation {
		validAfter, err := v.revocations.TokensValidAfter(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		if !validAfter.IsZero() && claims.IssuedAt.Before(validAfter) {
			return nil, &Error{Reason: ReasonRevoked}
		}
	}

	return claims, nil
}

// MemoryRevocations is an in-process RevocationChecker used by tests and
// local development when no identity provider endpoint is configured.
type MemoryRevocations struct {
	mu         sync.RWMutex
	validAfter map[string]time.Time
}

// NewMemoryRevocations constructs an empty checker (nothing revoked).
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{validAfter: make(map[string]time.Time)}
}

// Revoke invalidates every token issued to subject before now.
func (m *MemoryRevocations) Revoke(subject string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validAfter[subject] = time.Now().UTC()
}

// TokensValidAfter implements RevocationChecker.
func (m *MemoryRevocations) TokensValidAfter(_ context.Context, subject string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validAfter[subject], nil
}
