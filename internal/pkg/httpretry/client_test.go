package httpretry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDoer struct {
	responses []*http.Response
	errs      []error
	calls     int
}

func (s *scriptedDoer) Do(*http.Request) (*http.Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.responses[i], nil
}

func response(code int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: code, Header: header, Body: io.NopCloser(strings.NewReader("{}"))}
}

type waits struct{ got []time.Duration }

func (w *waits) wait(_ context.Context, d time.Duration) error {
	w.got = append(w.got, d)
	return nil
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://verify.example.com/v1/check", strings.NewReader(`{"email":"a@b.com"}`))
	require.NoError(t, err)
	return req
}

func TestDo_RetriesServerErrors(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{response(503, nil), response(502, nil), response(200, nil)}}
	w := &waits{}
	rc := NewRetryClient(doer, 3, WithWait(w.wait))

	resp, err := rc.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 3, doer.calls)
	assert.Len(t, w.got, 2)
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{response(400, nil)}}
	rc := NewRetryClient(doer, 3, WithWait((&waits{}).wait))

	resp, err := rc.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, 1, doer.calls)
}

func TestDo_ReturnsLastResponseWhenExhausted(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{response(500, nil), response(500, nil), response(500, nil)}}
	rc := NewRetryClient(doer, 2, WithWait((&waits{}).wait))

	resp, err := rc.Do(newRequest(t))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, 3, doer.calls)
}

func TestDo_NetworkErrorsExhausted(t *testing.T) {
	boom := errors.New("connection reset")
	doer := &scriptedDoer{errs: []error{boom, boom}}
	rc := NewRetryClient(doer, 1, WithWait((&waits{}).wait))

	_, err := rc.Do(newRequest(t))
	assert.ErrorIs(t, err, boom)
}

func TestDo_HonoursRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "5")
	doer := &scriptedDoer{responses: []*http.Response{response(429, h), response(200, nil)}}
	w := &waits{}
	rc := NewRetryClient(doer, 3, WithWait(w.wait), WithDelays(100*time.Millisecond, time.Minute))

	_, err := rc.Do(newRequest(t))
	require.NoError(t, err)
	require.Len(t, w.got, 1)
	assert.Equal(t, 5*time.Second, w.got[0])
}

func TestCalculateDelay_Bounds(t *testing.T) {
	rc := NewRetryClient(nil, 3)
	for attempt := 1; attempt <= 10; attempt++ {
		d := rc.calculateDelay(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3", time.Minute))
	assert.Equal(t, time.Minute, parseRetryAfter("600", time.Minute))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT", time.Minute))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", time.Minute))
}
