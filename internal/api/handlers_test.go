package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-finder/internal/auth"
	"github.com/ignite/lead-finder/internal/cache"
	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/query"
	"github.com/ignite/lead-finder/internal/service/bulk"
	"github.com/ignite/lead-finder/internal/service/lookup"
	"github.com/ignite/lead-finder/internal/storage"
	"github.com/ignite/lead-finder/internal/verification"
)

const (
	testSecret = "test-secret"
	userHeader = "X-User-Id"
)

// companyResolver finds "<first>@<company>.com" unless the company is "Nowhere".
type companyResolver struct {
	mu    sync.Mutex
	calls int
}

func (c *companyResolver) Resolve(_ context.Context, rec domain.CandidateRecord) query.Resolution {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if rec.CompanyName == "Nowhere" {
		return query.Resolution{Message: "No results for " + rec.FirstName}
	}
	return query.Resolution{BusinessEmail: strings.ToLower(rec.FirstName + "@" + rec.CompanyName + ".com")}
}

func (c *companyResolver) NotFound(rec domain.CandidateRecord) string {
	return "No results for " + rec.FirstName
}

// acceptProvider accepts every address except those at reject.com.
type acceptProvider struct{}

func (acceptProvider) Name() string { return "test" }

func (acceptProvider) RequestVerification(_ context.Context, email string) error {
	if strings.HasSuffix(email, "@reject.com") {
		return errors.New("rejected")
	}
	return nil
}

type testEnv struct {
	router   http.Handler
	resolver *companyResolver
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	blob, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	history := storage.NewHistory(blob, "")

	resolver := &companyResolver{}
	lk := lookup.NewService(resolver, cache.NewGateway(cache.NewMemoryStore(), 0), history)
	verifier := verification.NewService(acceptProvider{}, 0)
	bk := bulk.NewService(lk, verifier, history, nil, bulk.Config{})

	h := NewHandlers(lk, bk, verifier, Options{})
	hc := NewHealthChecker()
	hc.Register("storage", blob, true)
	authn := auth.NewAuthenticator(config.AuthConfig{JWTSecret: testSecret, TrustedHeader: userHeader})

	return &testEnv{
		router:   SetupRoutes(h, hc, authn, []string{"http://localhost:3000"}),
		resolver: resolver,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(userHeader, "user-1")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return e.do(t, http.MethodPost, path, body, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func multipartUpload(t *testing.T, fileName, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

const leadsCSV = "firstName,lastName,linkedin,companyName\n" +
	"Jane,Doe,linkedin.com/in/janedoe,Acme\n" +
	"John,Roe,linkedin.com/in/jroe,Nowhere\n" +
	"Ann,Lee,linkedin.com/in/alee,Globex\n"

func TestAPIRequiresIdentity(t *testing.T) {
	env := setupTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/find-email"},
		{http.MethodGet, "/api/list-single-results"},
		{http.MethodGet, "/api/single-result/abc"},
		{http.MethodPost, "/api/bulk-find-email"},
		{http.MethodGet, "/api/list-bulk-results"},
		{http.MethodGet, "/api/bulk-result/abc"},
		{http.MethodPost, "/api/bulk-result"},
		{http.MethodPost, "/api/bulk-result/abc/retry/0"},
		{http.MethodPost, "/api/bulk-result/abc/retry-all"},
		{http.MethodPost, "/api/verify-email"},
		{http.MethodPost, "/api/verify-emails"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, strings.NewReader("{}"))
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Unauthorized", decode(t, rec)["error"])
		})
	}
	assert.Zero(t, env.resolver.calls)
}

func TestAPIAcceptsBearerToken(t *testing.T) {
	env := setupTestServer(t)
	token, err := auth.SignToken(testSecret, "user-9", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/list-bulk-results", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["results"])
}

func TestHealthEndpoints(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadinessFailsWhenCriticalDown(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register("storage", downPinger{}, true)
	hc.Register("cache", nil, false)

	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hc = NewHealthChecker()
	hc.Register("cache", downPinger{}, false)
	rec = httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "degraded", decode(t, rec)["status"])
}

func TestFindEmailFlow(t *testing.T) {
	env := setupTestServer(t)

	rec := env.postJSON(t, "/api/find-email", map[string]string{
		"firstName": "Jane", "lastName": "Doe", "linkedin": "linkedin.com/in/janedoe", "companyName": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "jane@acme.com", body["email"])
	id, _ := body["searchId"].(string)
	require.NotEmpty(t, id)

	rec = env.do(t, http.MethodGet, "/api/single-result/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane", decode(t, rec)["firstName"])

	rec = env.do(t, http.MethodGet, "/api/list-single-results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode(t, rec)["results"].([]any)
	assert.Len(t, results, 1)

	rec = env.do(t, http.MethodGet, "/api/single-result/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindEmailNotFoundMessage(t *testing.T) {
	env := setupTestServer(t)
	rec := env.postJSON(t, "/api/find-email", map[string]string{
		"firstName": "John", "lastName": "Roe", "linkedin": "x", "companyName": "Nowhere",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["email"])
	assert.Equal(t, "No results for John", body["error"])
}

func TestFindEmailMissingFields(t *testing.T) {
	env := setupTestServer(t)
	rec := env.postJSON(t, "/api/find-email", map[string]string{"firstName": "Jane"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required parameters.", decode(t, rec)["error"])
	assert.Zero(t, env.resolver.calls)
}

func TestBulkFindEmailFlow(t *testing.T) {
	env := setupTestServer(t)
	body, ct := multipartUpload(t, "leads.csv", leadsCSV)

	rec := env.do(t, http.MethodPost, "/api/bulk-find-email?page=1&pageSize=10", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SearchID      string `json:"searchId"`
		BulkRequestID string `json:"bulkRequestId"`
		SuccessCount  int    `json:"successCount"`
		VerifiedCount int    `json:"verifiedCount"`
		RateLimitInfo struct {
			RemainingToday int `json:"remainingToday"`
		} `json:"rateLimitInfo"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, resp.SearchID, resp.BulkRequestID)
	assert.Equal(t, 2, resp.SuccessCount)
	assert.Equal(t, 2, resp.VerifiedCount)
	assert.Equal(t, 997, resp.RateLimitInfo.RemainingToday)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "jane@acme.com", resp.Results[0]["foundEmail"])
	assert.Nil(t, resp.Results[1]["foundEmail"])
	assert.Nil(t, resp.Results[1]["isVerified"])
	assert.Equal(t, "business", resp.Results[2]["emailQuality"])

	rec = env.do(t, http.MethodGet, "/api/bulk-result/"+resp.SearchID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leads.csv", decode(t, rec)["fileName"])

	rec = env.do(t, http.MethodGet, "/api/list-bulk-results", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["results"], 1)

	rec = env.do(t, http.MethodPost, "/api/bulk-result/"+resp.SearchID+"/retry/1?save=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	retry := decode(t, rec)
	assert.Equal(t, true, retry["saved"])
	assert.Equal(t, float64(1), retry["result"].(map[string]any)["retryCount"])

	rec = env.do(t, http.MethodPost, "/api/bulk-result/"+resp.SearchID+"/retry/7", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/bulk-result/"+resp.SearchID+"/retry-all", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, resp.SearchID, decode(t, rec)["supersedes"])
}

func TestBulkFindEmailValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name     string
		query    string
		fileName string
		content  string
		want     string
	}{
		{"page zero", "?page=0", "leads.csv", leadsCSV, "Invalid pagination parameters"},
		{"page size too large", "?pageSize=1001", "leads.csv", leadsCSV, "Invalid pagination parameters"},
		{"page size not a number", "?pageSize=ten", "leads.csv", leadsCSV, "Invalid pagination parameters"},
		{"wrong type", "", "leads.txt", leadsCSV, "Invalid file type. Please upload a CSV or XLSX file."},
		{"empty", "", "leads.csv", "firstName,lastName,linkedin,companyName\n", "File is empty or could not be parsed."},
		{"missing columns", "", "leads.csv", "firstName,lastName\nA,B\n", "Missing required columns: linkedin, companyName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartUpload(t, tt.fileName, tt.content)
			rec := env.do(t, http.MethodPost, "/api/bulk-find-email"+tt.query, body, ct)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decode(t, rec)["error"])
		})
	}

	rec := env.do(t, http.MethodPost, "/api/bulk-find-email", []byte("{}"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded.", decode(t, rec)["error"])

	assert.Zero(t, env.resolver.calls)
}

func TestSaveBulkResult(t *testing.T) {
	env := setupTestServer(t)

	rec := env.postJSON(t, "/api/bulk-result", map[string]any{
		"fileName":     "edited.csv",
		"recordCount":  1,
		"successCount": 1,
		"results": []map[string]any{
			{"firstName": "Jane", "lastName": "Doe", "linkedin": "x", "companyName": "Acme", "foundEmail": "jane@acme.com"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	id := body["searchId"].(string)

	rec = env.do(t, http.MethodGet, "/api/bulk-result/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.postJSON(t, "/api/bulk-result", map[string]any{"fileName": "x.csv"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmail(t *testing.T) {
	env := setupTestServer(t)

	rec := env.postJSON(t, "/api/verify-email", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required", decode(t, rec)["error"])

	rec = env.postJSON(t, "/api/verify-email", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format", decode(t, rec)["error"])

	rec = env.postJSON(t, "/api/verify-email", map[string]string{"email": "jane@gmail.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["isVerified"])
	assert.Equal(t, "personal", body["emailQuality"])
}

func TestVerifyEmails(t *testing.T) {
	env := setupTestServer(t)

	rec := env.postJSON(t, "/api/verify-emails", map[string]any{
		"results": []map[string]any{
			{"firstName": "A", "foundEmail": "a@acme.com"},
			{"firstName": "B", "foundEmail": nil},
			{"firstName": "C", "foundEmail": "c@reject.com"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Attempted int              `json:"attempted"`
		Verified  int              `json:"verified"`
		Failed    int              `json:"failed"`
		Results   []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Verified)
	assert.Equal(t, 1, report.Failed)
	assert.Nil(t, report.Results[1]["isVerified"])
	assert.Equal(t, false, report.Results[2]["isVerified"])
}
