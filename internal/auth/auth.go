// Package auth extracts the caller identity that partitions results and
// history. Sign-in happens upstream; this package only accepts an HS256
// bearer token (subject = identity) or, behind an authenticating proxy, a
// trusted header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/pkg/httputil"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

type ctxKey struct{}

// ErrNoIdentity is returned when a request carries no usable identity.
var ErrNoIdentity = errors.New("no caller identity")

// Authenticator resolves the identity of an HTTP request.
type Authenticator struct {
	secret        []byte
	issuer        string
	trustedHeader string
	log           *logger.Logger
}

// NewAuthenticator creates an Authenticator. With neither a secret nor a
// trusted header configured every request is rejected.
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		secret:        []byte(cfg.JWTSecret),
		issuer:        cfg.Issuer,
		trustedHeader: cfg.TrustedHeader,
		log:           logger.Named("auth"),
	}
}

// Identify returns the caller identity of r.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if a.trustedHeader != "" {
		if id := strings.TrimSpace(r.Header.Get(a.trustedHeader)); id != "" {
			return id, nil
		}
	}

	raw, ok := bearerToken(r)
	if !ok || len(a.secret) == 0 {
		return "", ErrNoIdentity
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrNoIdentity)
	}
	return claims.Subject, nil
}

// Middleware rejects requests without an identity with 401 and stores the
// identity in the request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.Identify(r)
		if err != nil {
			a.log.Debug("rejected request", "path", r.URL.Path, "error", err)
			httputil.Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// SignToken issues an HS256 token for subject. Used by tooling and tests.
func SignToken(secret, subject, issuer string) (string, error) {
	claims := jwt.RegisteredClaims{Subject: subject, Issuer: issuer}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
