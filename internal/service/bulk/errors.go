package bulk

import (
	"errors"
	"strings"
)

// Sentinel errors for the bulk service layer.
var (
	ErrInvalidPagination = errors.New("invalid pagination parameters")
	ErrMissingColumns    = errors.New("missing required columns")
	ErrEmptyFile         = errors.New("file is empty or could not be parsed")
	ErrUnsupportedFile   = errors.New("invalid file type")
	ErrParse             = errors.New("error parsing file")
	ErrNotFound          = errors.New("bulk result not found")
	ErrInProgress        = errors.New("this file is already being processed")
	ErrIndexOutOfRange   = errors.New("record index out of range")
	ErrInvalidSave       = errors.New("missing required parameters")
)

// MissingColumnsError names the required columns an upload lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// Is matches ErrMissingColumns.
func (e *MissingColumnsError) Is(target error) bool {
	return target == ErrMissingColumns
}
