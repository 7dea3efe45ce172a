package query

import (
	"context"
	"sync"
	"time"
)

// fakeBackend scripts responses per submitted query text.
type fakeBackend struct {
	mu sync.Mutex

	submitErrs []error                  // consumed one per Submit call before succeeding
	states     []State                  // returned in order by Status, last one repeats
	rows       func(q string) [][]*string // result rows for a query text

	queries     []string
	submitCalls int
	statusCalls int
	resultCalls int
}

func (f *fakeBackend) Submit(_ context.Context, q, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		return "", err
	}
	f.queries = append(f.queries, q)
	return q, nil
}

func (f *fakeBackend) Status(context.Context, string) (StatusInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.states) == 0 {
		return StatusInfo{State: StateSucceeded}, nil
	}
	s := f.states[0]
	if len(f.states) > 1 {
		f.states = f.states[1:]
	}
	return StatusInfo{State: s}, nil
}

func (f *fakeBackend) ResultRows(_ context.Context, q string) ([][]*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if f.rows == nil {
		return header(), nil
	}
	return f.rows(q), nil
}

func header() [][]*string {
	return [][]*string{{strp(ColumnBusinessEmail), strp(ColumnPersonalEmails)}}
}

func dataRows(business, personal *string) [][]*string {
	return append(header(), []*string{business, personal})
}

func strp(s string) *string { return &s }

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}
