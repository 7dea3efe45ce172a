package api

import (
	"net/http"
	"strconv"
)

// PaginationParams holds the requested page of a bulk upload.
type PaginationParams struct {
	Page     int
	PageSize int
}

// ParsePagination reads page and pageSize from the query string. Absent
// values take their defaults; values that are present but not integers are
// reported as invalid rather than silently replaced.
func ParsePagination(r *http.Request, defaultPageSize int) (PaginationParams, bool) {
	p := PaginationParams{Page: 1, PageSize: defaultPageSize}
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, false
		}
		p.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, false
		}
		p.PageSize = n
	}
	return p, true
}
