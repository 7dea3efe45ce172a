package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/lead-finder/internal/pkg/httpretry"
)

// HTTPVerifier is a Provider for REST verification services that accept
// POST {"email": "..."} and answer 2xx on acceptance.
type HTTPVerifier struct {
	client   httpretry.HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTPVerifier creates an HTTPVerifier. client is typically a
// *httpretry.RetryClient.
func NewHTTPVerifier(client httpretry.HTTPDoer, endpoint, apiKey string) *HTTPVerifier {
	return &HTTPVerifier{client: client, endpoint: endpoint, apiKey: apiKey}
}

// Name identifies the provider in logs.
func (v *HTTPVerifier) Name() string { return "http" }

// RequestVerification posts email to the endpoint.
func (v *HTTPVerifier) RequestVerification(ctx context.Context, email string) error {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("verification request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("verification provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
