package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

// Policy bounds submission retries and polling.
type Policy struct {
	SubmitAttempts  int
	ThrottleBackoff time.Duration // multiplied by the attempt number
	ErrorBackoff    time.Duration // multiplied by the attempt number
	PollAttempts    int
	PollInitial     time.Duration
	PollMax         time.Duration
}

// DefaultPolicy is 3 submit attempts and 10 polls backing off 1s..10s.
func DefaultPolicy() Policy {
	return Policy{
		SubmitAttempts:  3,
		ThrottleBackoff: 2 * time.Second,
		ErrorBackoff:    time.Second,
		PollAttempts:    10,
		PollInitial:     time.Second,
		PollMax:         10 * time.Second,
	}
}

// PollDelay returns the wait after poll number n (0-based):
// min(PollInitial * 2^n, PollMax).
func (p Policy) PollDelay(n int) time.Duration {
	d := p.PollInitial
	for i := 0; i < n && d < p.PollMax; i++ {
		d *= 2
	}
	if d > p.PollMax {
		d = p.PollMax
	}
	return d
}

// SubmitDelay returns the wait after failed submission attempt (1-based).
func (p Policy) SubmitDelay(attempt int, err error) time.Duration {
	if IsThrottling(err) {
		return p.ThrottleBackoff * time.Duration(attempt)
	}
	return p.ErrorBackoff * time.Duration(attempt)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Tier identifies which query produced a resolution.
type Tier int

const (
	TierNone Tier = iota
	TierPrimary
	TierFallback
)

// Resolution is the outcome of Resolve. A zero BusinessEmail with no
// PersonalEmails means not found, and Message explains why.
type Resolution struct {
	BusinessEmail  string
	PersonalEmails []string
	Tier           Tier
	Message        string
}

// Found reports whether anything was resolved.
func (r Resolution) Found() bool {
	return r.BusinessEmail != "" || len(r.PersonalEmails) > 0
}

// Config configures a Resolver.
type Config struct {
	Table            string
	OutputLocation   string
	Policy           Policy
	NotFoundTemplate string
}

// Resolver runs the tiered lookup for one record at a time. It holds no
// per-lookup state and is safe for concurrent use.
type Resolver struct {
	backend  Backend
	builder  *Builder
	output   string
	policy   Policy
	messages *Messages
	sleep    Sleeper
	log      *logger.Logger
}

// NewResolver creates a Resolver. Zero-valued policy fields take their
// DefaultPolicy values.
func NewResolver(backend Backend, cfg Config) (*Resolver, error) {
	if backend == nil {
		return nil, errors.New("query backend is required")
	}
	builder, err := NewBuilder(cfg.Table)
	if err != nil {
		return nil, err
	}
	messages, err := NewMessages(cfg.NotFoundTemplate)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		backend:  backend,
		builder:  builder,
		output:   cfg.OutputLocation,
		policy:   withDefaults(cfg.Policy),
		messages: messages,
		sleep:    ContextSleep,
		log:      logger.Named("query"),
	}, nil
}

func withDefaults(p Policy) Policy {
	d := DefaultPolicy()
	if p.SubmitAttempts <= 0 {
		p.SubmitAttempts = d.SubmitAttempts
	}
	if p.ThrottleBackoff <= 0 {
		p.ThrottleBackoff = d.ThrottleBackoff
	}
	if p.ErrorBackoff <= 0 {
		p.ErrorBackoff = d.ErrorBackoff
	}
	if p.PollAttempts <= 0 {
		p.PollAttempts = d.PollAttempts
	}
	if p.PollInitial <= 0 {
		p.PollInitial = d.PollInitial
	}
	if p.PollMax <= 0 {
		p.PollMax = d.PollMax
	}
	return p
}

// SetSleeper replaces the sleeper, for tests.
func (r *Resolver) SetSleeper(s Sleeper) { r.sleep = s }

// Policy returns the effective policy.
func (r *Resolver) Policy() Policy { return r.policy }

// NotFound renders the not-found diagnostic for rec.
func (r *Resolver) NotFound(rec domain.CandidateRecord) string {
	return r.messages.NotFound(rec)
}

// Resolve runs tier 1 and, when it yields nothing, tier 2. Backend
// failures are logged and reported as not found; Resolve never returns
// an error.
func (r *Resolver) Resolve(ctx context.Context, rec domain.CandidateRecord) Resolution {
	primary, rowFound := r.runTier(ctx, TierPrimary, r.builder.Primary(rec))
	if !primary.Empty() {
		return Resolution{BusinessEmail: primary.BusinessEmail, PersonalEmails: primary.PersonalEmails, Tier: TierPrimary}
	}
	if ctx.Err() != nil {
		return Resolution{Message: r.messages.NotFound(rec)}
	}

	r.log.Info("primary query empty, running fallback", "first_name", rec.FirstName, "company", rec.CompanyName)
	fallback, fbRow := r.runTier(ctx, TierFallback, r.builder.Fallback(rec))
	if !fallback.Empty() {
		return Resolution{BusinessEmail: fallback.BusinessEmail, PersonalEmails: fallback.PersonalEmails, Tier: TierFallback}
	}
	if rowFound || fbRow {
		return Resolution{Message: MessageNoEmail}
	}
	return Resolution{Message: r.messages.NotFound(rec)}
}

// runTier performs one submit, poll, extract cycle. Errors are logged and
// collapse to an empty extraction.
func (r *Resolver) runTier(ctx context.Context, tier Tier, text string) (Extraction, bool) {
	queryID, err := r.submit(ctx, text)
	if err != nil {
		r.log.Error("query submission failed", "tier", int(tier), "error", err)
		return Extraction{}, false
	}

	state := r.poll(ctx, queryID)
	if state != StateSucceeded {
		r.log.Warn("query did not succeed", "tier", int(tier), "query_id", queryID, "state", state.String())
		return Extraction{}, false
	}

	rows, err := r.backend.ResultRows(ctx, queryID)
	if err != nil {
		r.log.Error("fetching query results failed", "tier", int(tier), "query_id", queryID, "error", err)
		return Extraction{}, false
	}
	ext, err := Extract(rows)
	if err != nil {
		r.log.Warn("personal emails unparseable", "query_id", queryID, "error", err)
	}
	return ext, ext.RowFound
}

func (r *Resolver) submit(ctx context.Context, text string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.SubmitAttempts; attempt++ {
		id, err := r.backend.Submit(ctx, text, r.output)
		if err == nil && id != "" {
			return id, nil
		}
		if err == nil {
			err = errors.New("backend returned empty query id")
		}
		lastErr = err

		if attempt == r.policy.SubmitAttempts {
			break
		}
		delay := r.policy.SubmitDelay(attempt, err)
		r.log.Warn("query submission failed, retrying",
			"attempt", attempt, "throttled", IsThrottling(err), "delay_ms", delay.Milliseconds(), "error", err)
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("submit failed after %d attempts: %w", r.policy.SubmitAttempts, lastErr)
}

// poll drives the state machine until a terminal state. Status errors
// count as a poll with no new observation.
func (r *Resolver) poll(ctx context.Context, queryID string) State {
	state := StateQueued
	for attempt := 1; ; attempt++ {
		observed := state
		info, err := r.backend.Status(ctx, queryID)
		if err != nil {
			r.log.Warn("query status check failed", "query_id", queryID, "attempt", attempt, "error", err)
		} else {
			observed = info.State
			if info.Reason != "" && info.State.Terminal() {
				r.log.Info("query finished", "query_id", queryID, "state", info.State.String(), "reason", info.Reason)
			}
		}

		state = Transition(state, observed, attempt, r.policy.PollAttempts)
		if state.Terminal() {
			return state
		}
		if err := r.sleep(ctx, r.policy.PollDelay(attempt-1)); err != nil {
			return StateTimedOut
		}
	}
}
