// Package auth verifies bearer tokens issued by the identity provider and
// derives application roles from their claims.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// ClaimSet is the decoded, verified payload of an identity token.
type ClaimSet struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Custom    map[string]any
}

// Reason classifies an authentication failure. The value survives verbatim
// into the response error key.
type Reason string

const (
	ReasonMissing   Reason = "tokenMissing"
	ReasonMalformed Reason = "tokenMalformed"
	ReasonExpired   Reason = "tokenExpired"
	ReasonRevoked   Reason = "tokenRevoked"
)

// Error is a typed authentication failure.
type Error struct {
	Reason Reason
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error { return e.cause }

// ReasonOf extracts the failure reason from err, if it is an authentication
// failure.
func ReasonOf(err error) (Reason, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Reason, true
	}
	return "", false
}

// ErrProviderUnavailable indicates the identity provider could not be
// reached or answered with an internal error. Distinct from token-validity
// failures: surfaced as 500, not 401.
var ErrProviderUnavailable = errors.New("identity provider unavailable")
