package lookup

import "errors"

// Sentinel errors for the lookup service layer.
var (
	ErrMissingFields = errors.New("missing required parameters")
	ErrNotFound      = errors.New("search result not found")
)
