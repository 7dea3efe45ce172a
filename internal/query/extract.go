package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extraction is the data pulled out of a result set.
type Extraction struct {
	BusinessEmail  string
	PersonalEmails []string
	// RowFound is true when the backend returned a data row, even if
	// both email columns were empty.
	RowFound bool
}

// Empty reports whether neither email column yielded anything.
func (e Extraction) Empty() bool {
	return e.BusinessEmail == "" && len(e.PersonalEmails) == 0
}

// Extract reads row 1 of rows (row 0 is the header). A personal-emails
// value that cannot be parsed is returned as an error alongside whatever
// business email was found.
func Extract(rows [][]*string) (Extraction, error) {
	var out Extraction
	if len(rows) < 2 {
		return out, nil
	}
	out.RowFound = true
	row := rows[1]

	if len(row) > 0 && row[0] != nil {
		out.BusinessEmail = strings.TrimSpace(*row[0])
	}
	if len(row) > 1 && row[1] != nil {
		personal, err := ParsePersonalEmails(*row[1])
		if err != nil {
			return out, err
		}
		out.PersonalEmails = personal
	}
	return out, nil
}

// ParsePersonalEmails decodes the PERSONAL_EMAILS column, which holds a
// JSON array literal, a comma-separated list, or a single bare value.
func ParsePersonalEmails(raw string) ([]string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}

	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		var arr []string
		if err := json.Unmarshal([]byte(v), &arr); err != nil {
			return nil, fmt.Errorf("parse personal emails %q: %w", v, err)
		}
		return compact(arr), nil
	}
	if strings.Contains(v, ",") {
		return compact(strings.Split(v, ",")), nil
	}
	return []string{v}, nil
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
