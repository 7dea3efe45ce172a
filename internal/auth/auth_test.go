package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-finder/internal/config"
)

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := FromContext(r.Context())
		w.Write([]byte(id))
	})
}

func TestMiddleware_RejectsMissingIdentity(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret"})
	rec := httptest.NewRecorder()
	a.Middleware(echoIdentity()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/list-bulk-results", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unauthorized")
}

func TestMiddleware_AcceptsValidToken(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "leads"})
	tok, err := SignToken("s3cret", "user_123", "leads")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.Middleware(echoIdentity()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user_123", rec.Body.String())
}

func TestIdentify_RejectsBadTokens(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{JWTSecret: "s3cret", Issuer: "leads"})

	wrongKey, _ := SignToken("other", "user_123", "leads")
	wrongIssuer, _ := SignToken("s3cret", "user_123", "elsewhere")
	noSubject, _ := SignToken("s3cret", "", "leads")

	for name, tok := range map[string]string{
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"garbage":      "not.a.jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		_, err := a.Identify(req)
		assert.ErrorIs(t, err, ErrNoIdentity, name)
	}
}

func TestIdentify_TrustedHeader(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{TrustedHeader: "X-User-Id"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "user_9")
	id, err := a.Identify(req)
	require.NoError(t, err)
	assert.Equal(t, "user_9", id)

	_, err = a.Identify(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestIdentify_NoSecretRejectsBearer(t *testing.T) {
	a := NewAuthenticator(config.AuthConfig{})
	tok, _ := SignToken("", "user_1", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	_, err := a.Identify(req)
	assert.ErrorIs(t, err, ErrNoIdentity)
}
