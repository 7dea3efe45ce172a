package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Column names shared by uploads and the single-search request body.
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldLinkedIn    = "linkedin"
	FieldCompanyName = "companyName"
)

// RequiredFields lists the columns every candidate record must carry, in the
// order they are reported when missing.
var RequiredFields = []string{FieldFirstName, FieldLastName, FieldLinkedIn, FieldCompanyName}

// CandidateRecord is one identity awaiting email resolution. Columns other
// than the four required ones are carried verbatim in Extra and flattened
// back into the same JSON object on output.
type CandidateRecord struct {
	FirstName   string
	LastName    string
	LinkedIn    string
	CompanyName string
	Extra       map[string]any
}

// Fields returns the record as a flat column map.
func (r CandidateRecord) Fields() map[string]any {
	m := make(map[string]any, len(r.Extra)+4)
	for k, v := range r.Extra {
		m[k] = v
	}
	m[FieldFirstName] = r.FirstName
	m[FieldLastName] = r.LastName
	m[FieldLinkedIn] = r.LinkedIn
	m[FieldCompanyName] = r.CompanyName
	return m
}

// ExtraKeys returns the pass-through column names in sorted order.
func (r CandidateRecord) ExtraKeys() []string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens the extra columns next to the required ones.
func (r CandidateRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// UnmarshalJSON splits a flat column object into required fields and extras.
func (r *CandidateRecord) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = RecordFromFields(m)
	return nil
}

// RecordFromFields builds a record from a decoded row. Non-string values in
// the required columns (spreadsheet numbers, for instance) are stringified.
func RecordFromFields(fields map[string]any) CandidateRecord {
	rec := CandidateRecord{}
	for k, v := range fields {
		switch k {
		case FieldFirstName:
			rec.FirstName = stringify(v)
		case FieldLastName:
			rec.LastName = stringify(v)
		case FieldLinkedIn:
			rec.LinkedIn = stringify(v)
		case FieldCompanyName:
			rec.CompanyName = stringify(v)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[k] = v
		}
	}
	return rec
}

// RecordFromStrings is RecordFromFields for string-only rows (CSV, XLSX).
func RecordFromStrings(fields map[string]string) CandidateRecord {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return RecordFromFields(m)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
