package query

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/ignite/lead-finder/internal/domain"
)

// DefaultNotFoundTemplate is shown to single-search users when both tiers
// come back empty.
const DefaultNotFoundTemplate = `No matching email found. We searched for records matching the following criteria:
- Name: {{ first_name }} {{ last_name }}
- Company: {{ company_name }}
- LinkedIn: {{ linkedin }}
Please verify your information and try again with different variations.`

// MessageNoEmail is used when a row matched but carried no email.
const MessageNoEmail = "No email returned by query. The record was found but no email was available."

// Messages renders user-facing diagnostics.
type Messages struct {
	notFound *liquid.Template
}

// NewMessages parses the not-found template. An empty source selects
// DefaultNotFoundTemplate.
func NewMessages(src string) (*Messages, error) {
	if src == "" {
		src = DefaultNotFoundTemplate
	}
	tpl, err := liquid.NewEngine().ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse not-found template: %w", err)
	}
	return &Messages{notFound: tpl}, nil
}

// NotFound lists the searched name, company and LinkedIn.
func (m *Messages) NotFound(rec domain.CandidateRecord) string {
	out, err := m.notFound.RenderString(liquid.Bindings{
		"first_name":   rec.FirstName,
		"last_name":    rec.LastName,
		"company_name": rec.CompanyName,
		"linkedin":     rec.LinkedIn,
	})
	if err != nil {
		return fmt.Sprintf("No matching email found for %s %s at %s.", rec.FirstName, rec.LastName, rec.CompanyName)
	}
	return out
}
