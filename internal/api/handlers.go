package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ignite/lead-finder/internal/auth"
	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/identity"
	"github.com/ignite/lead-finder/internal/pkg/httputil"
	"github.com/ignite/lead-finder/internal/service/bulk"
	"github.com/ignite/lead-finder/internal/service/lookup"
	"github.com/ignite/lead-finder/internal/verification"
)

// Options tune request limits.
type Options struct {
	MaxUploadBytes  int64
	RequestTimeout  time.Duration
	DefaultPageSize int
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	lookup   *lookup.Service
	bulk     *bulk.Service
	verifier *verification.Service
	validate *validator.Validate
	opts     Options
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(lk *lookup.Service, bk *bulk.Service, verifier *verification.Service, opts Options) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 100
	}
	return &Handlers{
		lookup:   lk,
		bulk:     bk,
		verifier: verifier,
		validate: validator.New(),
		opts:     opts,
	}
}

// withTimeout bounds the lookups of one request when a timeout is set.
func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.opts.RequestTimeout)
}

// userID returns the caller identity set by auth.Middleware, writing 401
// when it is absent.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		httputil.Unauthorized(w)
		return "", false
	}
	return id, true
}

type findEmailRequest struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	LinkedIn    string `json:"linkedin" validate:"required"`
	CompanyName string `json:"companyName" validate:"required"`
}

// FindEmail resolves one record.
//
//	POST /api/find-email
func (h *Handlers) FindEmail(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req findEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "Missing required parameters.")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	resp, err := h.lookup.FindEmail(ctx, uid, domain.CandidateRecord{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		LinkedIn:    req.LinkedIn,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		respondServiceError(w, err, "Error executing query.")
		return
	}
	httputil.OK(w, resp)
}

// ListSingleResults lists the caller's single searches.
//
//	GET /api/list-single-results
func (h *Handlers) ListSingleResults(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	results, err := h.lookup.List(r.Context(), uid)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve search history.")
		return
	}
	if results == nil {
		results = []domain.SingleSummary{}
	}
	httputil.OK(w, map[string]any{"results": results})
}

// GetSingleResult returns one stored single search.
//
//	GET /api/single-result/{id}
func (h *Handlers) GetSingleResult(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	res, err := h.lookup.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve search result.")
		return
	}
	httputil.OK(w, res)
}

// BulkFindEmail processes one page of an uploaded CSV or XLSX file.
//
//	POST /api/bulk-find-email?page=&pageSize=
func (h *Handlers) BulkFindEmail(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, ok := ParsePagination(r, h.opts.DefaultPageSize)
	if !ok {
		httputil.BadRequest(w, "Invalid pagination parameters")
		return
	}
	if err := h.bulk.ValidatePagination(p.Page, p.PageSize); err != nil {
		respondServiceError(w, err, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		httputil.BadRequest(w, "No file uploaded.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "No file uploaded.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondSafeError(w, http.StatusInternalServerError, err, "Failed to read uploaded file.")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	resp, err := h.bulk.Process(ctx, uid, bulk.Upload{
		FileName: header.Filename,
		Data:     data,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		respondServiceError(w, err, "An unexpected error occurred during bulk processing.")
		return
	}
	httputil.OK(w, resp)
}

// ListBulkResults lists the caller's bulk requests.
//
//	GET /api/list-bulk-results
func (h *Handlers) ListBulkResults(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	results, err := h.bulk.List(r.Context(), uid)
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve bulk search history.")
		return
	}
	if results == nil {
		results = []domain.BulkSummary{}
	}
	httputil.OK(w, map[string]any{"results": results})
}

// GetBulkResult returns one stored bulk request.
//
//	GET /api/bulk-result/{id}
func (h *Handlers) GetBulkResult(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	req, err := h.bulk.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to retrieve bulk result.")
		return
	}
	httputil.OK(w, req)
}

// SaveBulkResult stores a client-edited result set.
//
//	POST /api/bulk-result
func (h *Handlers) SaveBulkResult(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req bulk.SaveRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "Missing required parameters.")
		return
	}

	id, err := h.bulk.SaveResult(r.Context(), uid, req)
	if err != nil {
		respondServiceError(w, err, "Failed to save bulk search result.")
		return
	}
	httputil.OK(w, map[string]any{"success": true, "searchId": id})
}

// RetryRecord re-runs the lookup for one record of a stored request.
//
//	POST /api/bulk-result/{id}/retry/{index}?save=true
func (h *Handlers) RetryRecord(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.BadRequest(w, "Record index must be an integer.")
		return
	}
	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	resp, err := h.bulk.RetryRecord(ctx, uid, chi.URLParam(r, "id"), index, save)
	if err != nil {
		respondServiceError(w, err, "Failed to retry record.")
		return
	}
	httputil.OK(w, resp)
}

// RetryAll re-runs every not-found record of a stored request.
//
//	POST /api/bulk-result/{id}/retry-all
func (h *Handlers) RetryAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	resp, err := h.bulk.RetryAll(ctx, uid, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "Failed to retry bulk result.")
		return
	}
	httputil.OK(w, resp)
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// VerifyEmail verifies and classifies one address.
//
//	POST /api/verify-email
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var req verifyEmailRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "Email is required")
		return
	}
	if !identity.ValidateEmailFormat(req.Email) {
		httputil.BadRequest(w, "Invalid email format")
		return
	}
	httputil.OK(w, h.verifier.VerifyOne(r.Context(), req.Email))
}

type verifyEmailsRequest struct {
	Results []domain.ResultRecord `json:"results" validate:"required"`
}

// VerifyEmails verifies every found, unverified email of a result set one
// at a time.
//
//	POST /api/verify-emails
func (h *Handlers) VerifyEmails(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var req verifyEmailsRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.BadRequest(w, "Results are required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	httputil.OK(w, h.verifier.VerifyAll(ctx, req.Results))
}
