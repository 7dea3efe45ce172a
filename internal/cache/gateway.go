package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

// DefaultTTL is the retention window of a cache entry.
const DefaultTTL = 30 * 24 * time.Hour

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the key-value contract the gateway needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ComputeKey fingerprints a record as lower(first_last_company_linkedin).
func ComputeKey(rec domain.CandidateRecord) string {
	return strings.ToLower(strings.Join([]string{
		rec.FirstName,
		rec.LastName,
		rec.CompanyName,
		rec.LinkedIn,
	}, "_"))
}

// Gateway wraps a Store so that cache failures never reach the caller.
type Gateway struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewGateway returns a gateway over store. A nil store disables caching and
// a non-positive ttl falls back to DefaultTTL.
func NewGateway(store Store, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{store: store, ttl: ttl, log: logger.Named("cache")}
}

// Get returns the cached email for key. Any backend error is logged and
// reported as a miss.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool) {
	if g == nil || g.store == nil {
		return "", false
	}
	v, err := g.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			g.log.Warn("cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	if v == "" {
		return "", false
	}
	g.log.Debug("cache hit", "key", key)
	return v, true
}

// Put stores email under key. Empty emails are ignored and write failures
// are logged and swallowed.
func (g *Gateway) Put(ctx context.Context, key, email string) {
	if g == nil || g.store == nil || email == "" {
		return
	}
	if err := g.store.Put(ctx, key, email, g.ttl); err != nil {
		g.log.Warn("cache put failed", "key", key, "error", err)
	}
}

// Invalidate removes key, best-effort.
func (g *Gateway) Invalidate(ctx context.Context, key string) {
	if g == nil || g.store == nil {
		return
	}
	if err := g.store.Delete(ctx, key); err != nil {
		g.log.Warn("cache invalidate failed", "key", key, "error", err)
	}
}
