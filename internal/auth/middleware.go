package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/witness-org/witness-sub000/internal/httperr"
	"github.com/witness-org/witness-sub000/internal/observability"
)

// Skipper marks requests that may proceed without credentials.
type Skipper func(r *http.Request) bool

// Middleware is the request-time authorization gate. It runs before any
// handler, verifies the bearer token, derives roles, and either populates
// the request context or short-circuits with a structured 401.
type Middleware struct {
	verifier        TokenVerifier
	skipper         Skipper
	checkRevocation bool
}

// NewMiddleware constructs the gate. Revocation checking applies to every
// protected request when enabled.
func NewMiddleware(verifier TokenVerifier, skipper Skipper, checkRevocation bool) Middleware {
	return Middleware{verifier: verifier, skipper: skipper, checkRevocation: checkRevocation}
}

// Wrap attaches the gate to next.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := m.skipper != nil && m.skipper(r)

		token, ok := bearerToken(r)
		if !ok {
			m.reject(w, &Error{Reason: ReasonMalformed})
			return
		}
		if token == "" {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, &Error{Reason: ReasonMissing})
			return
		}

		claims, err := m.verifier.Verify(r.Context(), token, m.checkRevocation)
		if err != nil {
			m.reject(w, err)
			return
		}

		roles, _ := RolesFrom(claims)
		principal := &Principal{Subject: claims.Subject, Email: claims.Email, Roles: roles}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m Middleware) reject(w http.ResponseWriter, err error) {
	if reason, ok := ReasonOf(err); ok {
		observability.RecordAuthFailure(string(reason))
		httperr.Write(w, http.StatusUnauthorized, httperr.Key(reason), err.Error())
		return
	}
	if errors.Is(err, ErrProviderUnavailable) {
		httperr.Write(w, http.StatusInternalServerError, httperr.KeyIdentityUnavailable, "identity provider unavailable")
		return
	}
	httperr.Write(w, http.StatusInternalServerError, httperr.KeyServerError, err.Error())
}

// bearerToken extracts the token from the Authorization header. The second
// return is false when a header is present but not a bearer scheme.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", true
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}
