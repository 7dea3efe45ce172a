package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-finder/internal/domain"
)

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, "O''Brien", EscapeLiteral("O'Brien"))
	assert.Equal(t, "''''", EscapeLiteral("''"))
	assert.Equal(t, "plain", EscapeLiteral("plain"))
}

func TestValidateTable(t *testing.T) {
	assert.NoError(t, ValidateTable("my_table"))
	assert.NoError(t, ValidateTable("leads.people"))
	assert.Error(t, ValidateTable("people; DROP TABLE x"))
	assert.Error(t, ValidateTable(""))
}

func TestBuilder_PrimaryEscapesEveryField(t *testing.T) {
	b, err := NewBuilder("my_table")
	require.NoError(t, err)

	q := b.Primary(domain.CandidateRecord{
		FirstName:   "Sean",
		LastName:    "O'Brien",
		LinkedIn:    "https://linkedin.com/in/sean-obrien",
		CompanyName: "Dunkin' Brands",
	})

	assert.Contains(t, q, "LAST_NAME = 'O''Brien' OR LAST_NAME LIKE 'O''Brien%'")
	assert.Contains(t, q, "COMPANY_NAME LIKE '%Dunkin'' Brands%'")
	assert.Contains(t, q, "LINKEDIN_URL LIKE '%sean-obrien%'")
	assert.Contains(t, q, "FROM my_table")
	assert.True(t, strings.HasSuffix(q, "LIMIT 1"))
	assert.Equal(t, 0, strings.Count(q, "'")%2, "quotes must balance")
}

func TestBuilder_FallbackDropsLinkedIn(t *testing.T) {
	b, err := NewBuilder("my_table")
	require.NoError(t, err)

	q := b.Fallback(domain.CandidateRecord{FirstName: "Jane", LastName: "Doe", LinkedIn: "linkedin.com/in/janedoe", CompanyName: "Acme"})
	assert.NotContains(t, q, "LINKEDIN_URL")
	assert.NotContains(t, q, "janedoe")
	assert.Contains(t, q, "FIRST_NAME LIKE 'Jane%'")
	assert.Contains(t, q, "COMPANY_NAME LIKE '%Acme%'")
}
