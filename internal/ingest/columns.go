package ingest

import (
	"strings"

	"github.com/ignite/lead-finder/internal/domain"
)

// columnAliases maps lowercase header names to the required columns. Lead
// exports from CRMs and spreadsheets rarely use the exact camelCase names.
var columnAliases = map[string]string{
	// First name
	"firstname":  domain.FieldFirstName,
	"first_name": domain.FieldFirstName,
	"first name": domain.FieldFirstName,
	"fname":      domain.FieldFirstName,
	"first":      domain.FieldFirstName,

	// Last name
	"lastname":  domain.FieldLastName,
	"last_name": domain.FieldLastName,
	"last name": domain.FieldLastName,
	"lname":     domain.FieldLastName,
	"last":      domain.FieldLastName,
	"surname":   domain.FieldLastName,

	// LinkedIn
	"linkedin":             domain.FieldLinkedIn,
	"linkedinurl":          domain.FieldLinkedIn,
	"linkedin_url":         domain.FieldLinkedIn,
	"linkedin url":         domain.FieldLinkedIn,
	"linkedin profile":     domain.FieldLinkedIn,
	"linkedin profile url": domain.FieldLinkedIn,
	"person linkedin url":  domain.FieldLinkedIn,

	// Company
	"companyname":  domain.FieldCompanyName,
	"company_name": domain.FieldCompanyName,
	"company name": domain.FieldCompanyName,
	"company":      domain.FieldCompanyName,
	"organization": domain.FieldCompanyName,
	"employer":     domain.FieldCompanyName,
}

// CanonicalColumn returns the required column a raw header names, or the
// header unchanged when it is not a known alias.
func CanonicalColumn(header string) string {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.Trim(normalized, "\"'")
	if field, ok := columnAliases[normalized]; ok {
		return field
	}
	return strings.TrimSpace(header)
}

// canonicalHeader maps each header cell through CanonicalColumn. When two
// cells resolve to the same required column, the first one wins and the
// later one keeps its raw name.
func canonicalHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		c := CanonicalColumn(h)
		if taken[c] {
			c = strings.TrimSpace(h)
		}
		taken[c] = true
		out[i] = c
	}
	return out
}
