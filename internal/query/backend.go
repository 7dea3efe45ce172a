package query

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

// StatusInfo is one observation of a query execution.
type StatusInfo struct {
	State  State
	Reason string
}

// Backend is the asynchronous analytical engine contract.
type Backend interface {
	// Submit starts queryText and returns its execution id.
	Submit(ctx context.Context, queryText, outputLocation string) (string, error)
	// Status reports the current execution state.
	Status(ctx context.Context, queryID string) (StatusInfo, error)
	// ResultRows returns the header row followed by data rows. Nil cells
	// are SQL NULLs.
	ResultRows(ctx context.Context, queryID string) ([][]*string, error)
}

// throttlingCodes are AWS error codes that mean "slow down".
var throttlingCodes = map[string]bool{
	"ThrottlingException":                    true,
	"TooManyRequestsException":               true,
	"Throttling":                             true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
}

// IsThrottling reports whether err is a rate-limit rejection from the
// backend. Backends outside AWS can opt in by returning an error with a
// Throttled() bool method.
func IsThrottling(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && throttlingCodes[apiErr.ErrorCode()] {
		return true
	}
	var t interface{ Throttled() bool }
	return errors.As(err, &t) && t.Throttled()
}
