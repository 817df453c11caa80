package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/witness-org/witness-sub000/internal/httperr"
)

func middlewareFixture(t *testing.T, skipper Skipper, checkRevocation bool) (Middleware, *MemoryRevocations) {
	t.Helper()
	revocations := NewMemoryRevocations()
	verifier := newTestVerifier(revocations)
	return NewMiddleware(verifier, skipper, checkRevocation), revocations
}

func captureHandler(captured **Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) httperr.Body {
	t.Helper()
	var body httperr.Body
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestMiddlewareMissingTokenOnProtectedRoute(t *testing.T) {
	mw, _ := middlewareFixture(t, nil, false)
	var principal *Principal
	handler := mw.Wrap(captureHandler(&principal))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workouts", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeErrorBody(t, rec)
	require.Equal(t, httperr.KeyTokenMissing, body.ErrorKey)
	require.Equal(t, http.StatusUnauthorized, body.Status)
	require.Equal(t, "Unauthorized", body.Error)
	require.NotEmpty(t, body.Timestamp)
	require.Nil(t, principal)
}

func TestMiddlewarePublicRouteWithoutToken(t *testing.T) {
	public := func(r *http.Request) bool { return r.URL.Path == "/healthz" }
	mw, _ := middlewareFixture(t, public, false)
	var principal *Principal
	handler := mw.Wrap(captureHandler(&principal))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Nil(t, principal)
}

func TestMiddlewareNonBearerScheme(t *testing.T) {
	mw, _ := middlewareFixture(t, nil, false)
	handler := mw.Wrap(captureHandler(new(*Principal)))

	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httperr.KeyTokenMalformed, decodeErrorBody(t, rec).ErrorKey)
}

func TestMiddlewareValidTokenPopulatesPrincipal(t *testing.T) {
	mw, _ := middlewareFixture(t, nil, false)
	var principal *Principal
	handler := mw.Wrap(captureHandler(&principal))

	token := mintToken(t, jwt.MapClaims{
		"sub":     "subject-1",
		"email":   "user@example.com",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"premium": true,
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, principal)
	require.Equal(t, "subject-1", principal.Subject)
	require.Equal(t, "user@example.com", principal.Email)
	require.True(t, principal.Roles.Has(RolePremium))
	require.False(t, principal.Roles.Has(RoleAdmin))
}

func TestMiddlewareExpiredToken(t *testing.T) {
	mw, _ := middlewareFixture(t, nil, false)
	handler := mw.Wrap(captureHandler(new(*Principal)))

	token := mintToken(t, jwt.MapClaims{
		"sub": "subject-1",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httperr.KeyTokenExpired, decodeErrorBody(t, rec).ErrorKey)
}

func TestMiddlewareRevokedToken(t *testing.T) {
	mw, revocations := middlewareFixture(t, nil, true)
	handler := mw.Wrap(captureHandler(new(*Principal)))

	token := mintToken(t, jwt.MapClaims{
		"sub": "subject-1",
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	revocations.Revoke("subject-1")

	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, httperr.KeyTokenRevoked, decodeErrorBody(t, rec).ErrorKey)
}

type unavailableChecker struct{}

func (unavailableChecker) TokensValidAfter(context.Context, string) (time.Time, error) {
	return time.Time{}, context.DeadlineExceeded
}

func TestMiddlewareProviderOutageIsServerError(t *testing.T) {
	verifier := newTestVerifier(unavailableChecker{})
	mw := NewMiddleware(verifier, nil, true)
	handler := mw.Wrap(captureHandler(new(*Principal)))

	token := mintToken(t, jwt.MapClaims{
		"sub": "subject-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/v1/workouts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, httperr.KeyIdentityUnavailable, decodeErrorBody(t, rec).ErrorKey)
}
