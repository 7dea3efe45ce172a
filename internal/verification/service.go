package verification

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/identity"
	"github.com/ignite/lead-finder/internal/pkg/logger"
)

// Provider requests verification of one address. A nil error means the
// request was accepted.
type Provider interface {
	Name() string
	RequestVerification(ctx context.Context, email string) error
}

// StatusChecker is implemented by providers that can report an address
// which already completed verification. Such addresses are not requested
// again.
type StatusChecker interface {
	IdentityStatus(ctx context.Context, email string) (bool, error)
}

// Verdict is the response of a single verification.
type Verdict struct {
	Email        string         `json:"email"`
	IsVerified   bool           `json:"isVerified"`
	EmailQuality domain.Quality `json:"emailQuality"`
	VerifiedAt   time.Time      `json:"verifiedAt"`
}

// ItemOutcome reports one entry of a batch verification.
type ItemOutcome struct {
	Index      int    `json:"index"`
	Email      string `json:"email"`
	IsVerified bool   `json:"isVerified"`
}

// BatchReport is the outcome of VerifyAll.
type BatchReport struct {
	Results   []domain.ResultRecord `json:"results"`
	Items     []ItemOutcome         `json:"items"`
	Attempted int                   `json:"attempted"`
	Verified  int                   `json:"verified"`
	Failed    int                   `json:"failed"`
}

// Service wraps a Provider with format checks, classification and pacing.
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	now      func() time.Time
	log      *logger.Logger
}

// NewService creates a Service. A nil provider verifies nothing (every
// verdict is false). ratePerSecond <= 0 disables pacing of batch runs.
func NewService(provider Provider, ratePerSecond float64) *Service {
	s := &Service{
		provider: provider,
		now:      time.Now,
		log:      logger.Named("verification"),
	}
	if ratePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return s
}

// Verify requests verification of email and reports whether it was
// accepted. Invalid formats and provider errors yield false.
func (s *Service) Verify(ctx context.Context, email string) bool {
	if !identity.ValidateEmailFormat(email) {
		return false
	}
	if s.provider == nil {
		return false
	}
	if sc, ok := s.provider.(StatusChecker); ok {
		confirmed, err := sc.IdentityStatus(ctx, email)
		switch {
		case err != nil:
			s.log.Debug("identity status unavailable", "provider", s.provider.Name(), "email", email, "error", err)
		case confirmed:
			return true
		}
	}
	if err := s.provider.RequestVerification(ctx, email); err != nil {
		s.log.Warn("verification request failed", "provider", s.provider.Name(), "email", email, "error", err)
		return false
	}
	return true
}

// Classify labels email personal or business.
func (s *Service) Classify(email string) domain.Quality {
	return identity.ClassifyDomain(email)
}

// VerifyOne verifies and classifies a single address.
func (s *Service) VerifyOne(ctx context.Context, email string) Verdict {
	return Verdict{
		Email:        email,
		IsVerified:   s.Verify(ctx, email),
		EmailQuality: s.Classify(email),
		VerifiedAt:   s.now().UTC(),
	}
}

// Enrich sets verification and quality on r when an email was found and
// leaves them null otherwise.
func (s *Service) Enrich(ctx context.Context, r *domain.ResultRecord) {
	if !r.Found() {
		r.IsVerified = nil
		r.EmailQuality = ""
		return
	}
	ok := s.Verify(ctx, r.Email())
	r.IsVerified = &ok
	r.EmailQuality = s.Classify(r.Email())
}

// VerifyAll verifies every found, not yet verified email in results, one
// at a time. The input slice is not modified.
func (s *Service) VerifyAll(ctx context.Context, results []domain.ResultRecord) BatchReport {
	out := make([]domain.ResultRecord, len(results))
	copy(out, results)
	report := BatchReport{Results: out, Items: []ItemOutcome{}}

	for i := range out {
		r := &out[i]
		if !r.Found() || r.IsVerified != nil {
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				s.log.Warn("batch verification stopped", "remaining_from", i, "error", err)
				break
			}
		} else if ctx.Err() != nil {
			break
		}

		s.Enrich(ctx, r)
		report.Attempted++
		if *r.IsVerified {
			report.Verified++
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, ItemOutcome{Index: i, Email: r.Email(), IsVerified: *r.IsVerified})
	}

	s.log.Info("batch verification finished",
		"attempted", report.Attempted, "verified", report.Verified, "failed", report.Failed)
	return report
}
