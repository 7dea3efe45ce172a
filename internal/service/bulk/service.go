package bulk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/ingest"
	"github.com/ignite/lead-finder/internal/pkg/distlock"
	"github.com/ignite/lead-finder/internal/pkg/logger"
	"github.com/ignite/lead-finder/internal/service/lookup"
	"github.com/ignite/lead-finder/internal/storage"
)

// WarningNotStored is attached to responses whose results could not be saved.
const WarningNotStored = "Results processed successfully but could not be stored for future reference."

// Lookuper resolves single records.
type Lookuper interface {
	Lookup(ctx context.Context, rec domain.CandidateRecord) lookup.Outcome
	Invalidate(ctx context.Context, rec domain.CandidateRecord)
}

// Enricher fills verification and quality on a found result.
type Enricher interface {
	Enrich(ctx context.Context, r *domain.ResultRecord)
}

// History persists bulk requests.
type History interface {
	SaveBulk(ctx context.Context, identity string, req *domain.BulkRequest) (string, error)
	GetBulk(ctx context.Context, identity, id string) (*domain.BulkRequest, error)
	ListBulk(ctx context.Context, identity string) ([]domain.BulkSummary, error)
}

// Config tunes the pipeline. Zero values take the defaults.
type Config struct {
	ChunkSize          int
	DailyLimit         int
	MaxPageSize        int
	RetryBypassesCache bool
	// FinalizeTimeout bounds enrichment and storage after lookups return.
	// They run even when the request context has expired.
	FinalizeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 10
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = 1000
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 1000
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = time.Minute
	}
	return c
}

// Upload is one bulk request as received.
type Upload struct {
	FileName string
	Data     []byte
	Page     int
	PageSize int
}

// Response is a processed or retried bulk request as returned to the caller.
type Response struct {
	*domain.BulkRequest
	BulkRequestID string `json:"bulkRequestId"`
	Warning       string `json:"warning,omitempty"`
}

// RetryResponse is the outcome of retrying one record.
type RetryResponse struct {
	Index   int                 `json:"index"`
	Result  domain.ResultRecord `json:"result"`
	Saved   bool                `json:"saved"`
	Warning string              `json:"warning,omitempty"`
}

// SaveRequest is a client-edited result set to store.
type SaveRequest struct {
	FileName     string                `json:"fileName" validate:"required"`
	RecordCount  int                   `json:"recordCount"`
	SuccessCount int                   `json:"successCount"`
	Results      []domain.ResultRecord `json:"results" validate:"required"`
}

// Service runs bulk lookups.
type Service struct {
	lookup   Lookuper
	enricher Enricher
	history  History
	locker   distlock.Locker
	cfg      Config
	now      func() time.Time
	log      *logger.Logger
}

// NewService creates a bulk service. A nil locker disables the duplicate
// upload guard.
func NewService(lk Lookuper, enricher Enricher, history History, locker distlock.Locker, cfg Config) *Service {
	if locker == nil {
		locker = distlock.NoopLocker{}
	}
	return &Service{
		lookup:   lk,
		enricher: enricher,
		history:  history,
		locker:   locker,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		log:      logger.Named("bulk"),
	}
}

// ValidatePagination checks page >= 1 and 1 <= pageSize <= the configured
// maximum.
func (s *Service) ValidatePagination(page, pageSize int) error {
	if page < 1 || pageSize < 1 || pageSize > s.cfg.MaxPageSize {
		return ErrInvalidPagination
	}
	return nil
}

// Process parses an upload, resolves the requested page and stores it.
func (s *Service) Process(ctx context.Context, userID string, up Upload) (*Response, error) {
	if err := s.ValidatePagination(up.Page, up.PageSize); err != nil {
		return nil, err
	}
	table, err := parseUpload(up)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(up.Data)
	digest := hex.EncodeToString(sum[:])

	lock := s.locker.NewLock("bulk:" + userID + ":" + digest[:16])
	acquired, err := lock.Acquire(ctx)
	switch {
	case err != nil:
		s.log.Warn("upload lock unavailable, processing without guard", "user", userID, "error", err)
	case !acquired:
		return nil, ErrInProgress
	default:
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("releasing upload lock failed", "user", userID, "error", err)
			}
		}()
	}

	started := s.now()
	total := len(table.Records)
	page := paginate(table.Records, up.Page, up.PageSize)
	s.log.Info("bulk lookup started",
		"user", userID, "file", up.FileName, "total", total, "page", up.Page, "page_size", up.PageSize, "selected", len(page))

	results := s.ResolveAll(ctx, page)

	fctx, cancel := s.finalizeContext(ctx)
	defer cancel()
	s.enrich(fctx, results)

	req := &domain.BulkRequest{
		SearchID:           fmt.Sprintf("%d-%s", started.UnixMilli(), digest[:8]),
		FileName:           up.FileName,
		TotalRecordsInFile: total,
		Page:               up.Page,
		PageSize:           up.PageSize,
		TotalPages:         (total + up.PageSize - 1) / up.PageSize,
		Timestamp:          s.now().UTC(),
		RateLimitInfo:      s.rateLimit(total),
		Results:            results,
	}
	req.Recount()

	s.log.Info("bulk lookup finished",
		"user", userID, "search_id", req.SearchID, "records", req.RecordCount,
		"found", req.SuccessCount, "verified", req.VerifiedCount, "elapsed_ms", time.Since(started).Milliseconds())
	return s.store(fctx, userID, req), nil
}

// finalizeContext detaches from ctx's cancellation so that lookups cut off
// by the request deadline still get their found records enriched and the
// page stored.
func (s *Service) finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FinalizeTimeout)
}

func parseUpload(up Upload) (*ingest.Table, error) {
	if !ingest.Supported(up.FileName) {
		return nil, ErrUnsupportedFile
	}
	table, err := ingest.Parse(up.FileName, up.Data)
	switch {
	case errors.Is(err, ingest.ErrEmptyFile):
		return nil, ErrEmptyFile
	case errors.Is(err, ingest.ErrUnsupportedFile):
		return nil, ErrUnsupportedFile
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if missing := table.MissingColumns(); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return table, nil
}

// paginate returns records[(page-1)*size : page*size], clamped.
func paginate(records []domain.CandidateRecord, page, size int) []domain.CandidateRecord {
	start := (page - 1) * size
	if start >= len(records) {
		return nil
	}
	end := min(start+size, len(records))
	return records[start:end]
}

// ResolveAll looks up records chunk by chunk. Records within a chunk run
// concurrently; the next chunk starts only after every lookup of the
// current one has returned. Results are in input order.
func (s *Service) ResolveAll(ctx context.Context, records []domain.CandidateRecord) []domain.ResultRecord {
	out := make([]domain.ResultRecord, len(records))
	for start := 0; start < len(records); start += s.cfg.ChunkSize {
		end := min(start+s.cfg.ChunkSize, len(records))
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = s.resolveOne(ctx, records[i])
				return nil
			})
		}
		_ = g.Wait()
		s.log.Debug("chunk resolved", "from", start, "to", end)
	}
	return out
}

// resolveOne never panics; a failing lookup yields a not-found result.
func (s *Service) resolveOne(ctx context.Context, rec domain.CandidateRecord) (res domain.ResultRecord) {
	res = domain.ResultRecord{Record: rec}
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("lookup panicked", "first_name", rec.FirstName, "company", rec.CompanyName, "panic", fmt.Sprint(p))
			res = domain.ResultRecord{Record: rec, ProcessedAt: s.now().UTC(), Error: "lookup failed"}
		}
	}()
	s.apply(&res, s.lookup.Lookup(ctx, rec))
	return res
}

func (s *Service) apply(r *domain.ResultRecord, out lookup.Outcome) {
	r.ClearResolution()
	if out.Found() {
		email := out.Email
		r.FoundEmail = &email
	}
	r.PersonalEmails = out.PersonalEmails
	r.Skipped = out.Skipped
	r.ProcessedAt = s.now().UTC()
}

func (s *Service) enrich(ctx context.Context, results []domain.ResultRecord) {
	for i := range results {
		if results[i].Found() {
			s.enricher.Enrich(ctx, &results[i])
		}
	}
}

// rateLimit reports the static daily quota. The day resets at the next
// local midnight.
func (s *Service) rateLimit(processed int) *domain.RateLimitInfo {
	now := s.now()
	y, m, d := now.Date()
	return &domain.RateLimitInfo{
		DailyLimit:     s.cfg.DailyLimit,
		RemainingToday: s.cfg.DailyLimit - processed,
		ResetTime:      time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()),
	}
}

// store persists req. A failure is logged and turned into a warning.
func (s *Service) store(ctx context.Context, userID string, req *domain.BulkRequest) *Response {
	resp := &Response{BulkRequest: req, BulkRequestID: req.SearchID}
	if _, err := s.history.SaveBulk(ctx, userID, req); err != nil {
		s.log.Error("storing bulk result failed", "user", userID, "search_id", req.SearchID, "error", err)
		resp.Warning = WarningNotStored
	}
	return resp
}

// Get returns one stored bulk request.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.BulkRequest, error) {
	req, err := s.history.GetBulk(ctx, userID, id)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading bulk result %s: %w", id, err)
	}
	return req, nil
}

// List returns the caller's bulk history, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.BulkSummary, error) {
	return s.history.ListBulk(ctx, userID)
}

// RetryRecord re-runs the lookup for one record of a stored request. The
// stored snapshot is rewritten only when save is true.
func (s *Service) RetryRecord(ctx context.Context, userID, requestID string, index int, save bool) (*RetryResponse, error) {
	req, err := s.Get(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(req.Results) {
		return nil, ErrIndexOutOfRange
	}

	r := &req.Results[index]
	if s.cfg.RetryBypassesCache {
		s.lookup.Invalidate(ctx, r.Record)
	}
	retried := s.resolveOne(ctx, r.Record)
	retried.RetryCount = r.RetryCount + 1

	fctx, cancel := s.finalizeContext(ctx)
	defer cancel()
	if retried.Found() {
		s.enricher.Enrich(fctx, &retried)
	}
	*r = retried

	s.log.Info("record retried",
		"user", userID, "search_id", requestID, "index", index, "found", r.Found(), "retry_count", r.RetryCount)

	resp := &RetryResponse{Index: index, Result: *r}
	if !save {
		return resp, nil
	}
	req.Recount()
	if _, err := s.history.SaveBulk(fctx, userID, req); err != nil {
		s.log.Error("storing retried record failed", "user", userID, "search_id", requestID, "error", err)
		resp.Warning = WarningNotStored
		return resp, nil
	}
	resp.Saved = true
	return resp, nil
}

// RetryAll re-runs every not-found record of a stored request through the
// chunked pipeline and stores the outcome as a new request superseding
// the old one. Skipped records are left as they were.
func (s *Service) RetryAll(ctx context.Context, userID, requestID string) (*Response, error) {
	lock := s.locker.NewLock("bulk:" + userID + ":retry:" + requestID)
	acquired, err := lock.Acquire(ctx)
	switch {
	case err != nil:
		s.log.Warn("retry lock unavailable, processing without guard", "user", userID, "error", err)
	case !acquired:
		return nil, ErrInProgress
	default:
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("releasing retry lock failed", "user", userID, "error", err)
			}
		}()
	}

	prev, err := s.Get(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ResultRecord, len(prev.Results))
	copy(results, prev.Results)

	var (
		indices []int
		records []domain.CandidateRecord
	)
	for i, r := range results {
		if r.Found() || r.Skipped {
			continue
		}
		indices = append(indices, i)
		records = append(records, r.Record)
		if s.cfg.RetryBypassesCache {
			s.lookup.Invalidate(ctx, r.Record)
		}
	}

	retried := s.ResolveAll(ctx, records)

	fctx, cancel := s.finalizeContext(ctx)
	defer cancel()
	for j, i := range indices {
		retried[j].RetryCount = results[i].RetryCount + 1
		results[i] = retried[j]
		if results[i].Found() {
			s.enricher.Enrich(fctx, &results[i])
		}
	}

	next := *prev
	next.SearchID = s.newID()
	next.Supersedes = prev.SearchID
	next.Timestamp = s.now().UTC()
	next.Results = results
	next.Recount()

	s.log.Info("bulk retry finished",
		"user", userID, "search_id", next.SearchID, "supersedes", requestID,
		"retried", len(indices), "found", next.SuccessCount)
	return s.store(fctx, userID, &next), nil
}

// SaveResult stores a client-edited result set under a new id.
func (s *Service) SaveResult(ctx context.Context, userID string, in SaveRequest) (string, error) {
	if in.FileName == "" || in.Results == nil {
		return "", ErrInvalidSave
	}
	req := &domain.BulkRequest{
		SearchID:     s.newID(),
		FileName:     in.FileName,
		RecordCount:  in.RecordCount,
		SuccessCount: in.SuccessCount,
		Results:      in.Results,
		Timestamp:    s.now().UTC(),
	}
	if _, err := s.history.SaveBulk(ctx, userID, req); err != nil {
		return "", fmt.Errorf("saving bulk result: %w", err)
	}
	return req.SearchID, nil
}

// newID returns "{unixMillis}-{random base36}".
func (s *Service) newID() string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	if len(suffix) > 11 {
		suffix = suffix[:11]
	}
	return fmt.Sprintf("%d-%s", s.now().UnixMilli(), suffix)
}
