package query

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ignite/lead-finder/internal/domain"
	"github.com/ignite/lead-finder/internal/identity"
)

// Result column names.
const (
	ColumnBusinessEmail  = "BUSINESS_EMAIL"
	ColumnPersonalEmails = "PERSONAL_EMAILS"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// EscapeLiteral makes s safe to place between single quotes in a SQL
// string literal by doubling embedded quotes.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ValidateTable checks that name is a plain, optionally qualified,
// identifier. Table names cannot be escaped as literals.
func ValidateTable(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Builder renders tier queries against one table.
type Builder struct {
	table string
}

// NewBuilder returns a Builder for table.
func NewBuilder(table string) (*Builder, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	return &Builder{table: table}, nil
}

// Primary constrains on names, LinkedIn and company.
func (b *Builder) Primary(rec domain.CandidateRecord) string {
	first := EscapeLiteral(rec.FirstName)
	last := EscapeLiteral(rec.LastName)
	linkedin := EscapeLiteral(rec.LinkedIn)
	handle := EscapeLiteral(identity.ExtractLinkedInHandle(rec.LinkedIn))
	company := EscapeLiteral(rec.CompanyName)

	return fmt.Sprintf(`SELECT %s, %s
FROM %s
WHERE
  (FIRST_NAME = '%s' OR FIRST_NAME LIKE '%s%%')
  AND (LAST_NAME = '%s' OR LAST_NAME LIKE '%s%%')
  AND (LINKEDIN_URL = '%s'
       OR LINKEDIN_URL LIKE '%%%s%%'
       OR LINKEDIN_URL LIKE '%%%s%%')
  AND COMPANY_NAME LIKE '%%%s%%'
LIMIT 1`,
		ColumnBusinessEmail, ColumnPersonalEmails, b.table,
		first, first,
		last, last,
		linkedin, linkedin, handle,
		company)
}

// Fallback is Primary without the LinkedIn predicate.
func (b *Builder) Fallback(rec domain.CandidateRecord) string {
	first := EscapeLiteral(rec.FirstName)
	last := EscapeLiteral(rec.LastName)
	company := EscapeLiteral(rec.CompanyName)

	return fmt.Sprintf(`SELECT %s, %s
FROM %s
WHERE
  (FIRST_NAME = '%s' OR FIRST_NAME LIKE '%s%%')
  AND (LAST_NAME = '%s' OR LAST_NAME LIKE '%s%%')
  AND COMPANY_NAME LIKE '%%%s%%'
LIMIT 1`,
		ColumnBusinessEmail, ColumnPersonalEmails, b.table,
		first, first,
		last, last,
		company)
}
