package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/lead-finder/internal/cache"
	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/identity"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/query"
	"github.com/ignite/lead-finder/internal/storage"
)

// Resolver runs the tiered data lake query for one record.
type Resolver interface {
	Resolve(ctx context.Context, rec domain.CandidateRecord) query.Resolution
	// NotFound renders the diagnostic listing what was searched for.
	NotFound(rec domain.CandidateRecord) string
}

// History persists and reads single search results.
type History interface {
	SaveSingle(ctx context.Context, identity string, res *domain.SingleSearchResult) (string, error)
	GetSingle(ctx context.Context, identity, id string) (*domain.SingleSearchResult, error)
	ListSingle(ctx context.Context, identity string) ([]domain.SingleSummary, error)
}

// cacheWriteTimeout bounds a cache write that outlives the lookup's context.
const cacheWriteTimeout = 5 * time.Second

// WarningNotStored is attached to responses whose result could not be saved.
const WarningNotStored = "Result found but could not be stored for future reference."

// Outcome is the result of one Lookup.
type Outcome struct {
	Email          string
	PersonalEmails []string
	CacheHit       bool
	Skipped        bool
	MissingFields  []string
	Tier           query.Tier
	Message        string
}

// Found reports whether a business email was resolved.
func (o Outcome) Found() bool { return o.Email != "" }

// SearchResponse is a persisted single search plus an optional warning.
type SearchResponse struct {
	*domain.SingleSearchResult
	Warning string `json:"warning,omitempty"`
}

// Service implements single record lookups. It is safe for concurrent use.
type Service struct {
	resolver Resolver
	cache    *cache.Gateway
	history  History
	now      func() time.Time
	newID    func() string
	log      *logger.Logger
}

// NewService creates a lookup service. cache may be nil to disable caching
// and history may be nil when results are not persisted.
func NewService(resolver Resolver, gw *cache.Gateway, history History) *Service {
	return &Service{
		resolver: resolver,
		cache:    gw,
		history:  history,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		log:      logger.Named("lookup"),
	}
}

// Lookup resolves rec. It never returns an error: backend and cache
// failures degrade to a not-found outcome.
func (s *Service) Lookup(ctx context.Context, rec domain.CandidateRecord) Outcome {
	if missing := identity.MissingFields(rec); len(missing) > 0 {
		s.log.Warn("skipping record with missing fields", "missing", missing)
		return Outcome{Skipped: true, MissingFields: missing}
	}

	key := cache.ComputeKey(rec)
	if email, ok := s.cache.Get(ctx, key); ok {
		return Outcome{Email: email, CacheHit: true}
	}

	res := s.resolver.Resolve(ctx, rec)
	out := Outcome{PersonalEmails: res.PersonalEmails, Tier: res.Tier, Message: res.Message}

	if res.BusinessEmail != "" {
		email, ok := identity.NormalizeAndFilter(res.BusinessEmail)
		if !ok {
			out.Message = s.resolver.NotFound(rec)
			return out
		}
		out.Email = email
		s.storeInCache(ctx, key, email)
		return out
	}
	if out.Message == "" && len(out.PersonalEmails) == 0 {
		out.Message = query.MessageNoEmail
	}
	return out
}

// storeInCache writes even when ctx has just expired, so a lookup that
// finished at the request deadline is not resolved again next time.
func (s *Service) storeInCache(ctx context.Context, key, email string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	s.cache.Put(wctx, key, email)
}

// Invalidate drops the cached email for rec.
func (s *Service) Invalidate(ctx context.Context, rec domain.CandidateRecord) {
	s.cache.Invalidate(ctx, cache.ComputeKey(rec))
}

// FindEmail runs a lookup for the caller and stores the result in their
// search history. A storage failure is logged and reported as a warning.
func (s *Service) FindEmail(ctx context.Context, userID string, rec domain.CandidateRecord) (*SearchResponse, error) {
	if len(identity.MissingFields(rec)) > 0 {
		return nil, ErrMissingFields
	}

	out := s.Lookup(ctx, rec)
	result := &domain.SingleSearchResult{
		SearchID:       s.newID(),
		UserID:         userID,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		LinkedIn:       rec.LinkedIn,
		CompanyName:    rec.CompanyName,
		Email:          out.Email,
		PersonalEmails: out.PersonalEmails,
		Cached:         out.CacheHit,
		Timestamp:      s.now().UTC(),
	}
	if !out.Found() && len(out.PersonalEmails) == 0 {
		result.Error = out.Message
	}

	resp := &SearchResponse{SingleSearchResult: result}
	if s.history == nil {
		return resp, nil
	}
	if _, err := s.history.SaveSingle(ctx, userID, result); err != nil {
		s.log.Error("storing single search failed", "user", userID, "search_id", result.SearchID, "error", err)
		resp.Warning = WarningNotStored
	}
	return resp, nil
}

// Get returns one stored single search.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.SingleSearchResult, error) {
	res, err := s.history.GetSingle(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading single search %s: %w", id, err)
	}
	return res, nil
}

// List returns the caller's single search history, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.SingleSummary, error) {
	return s.history.ListSingle(ctx, userID)
}
