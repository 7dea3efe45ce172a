package domain

import (
	"encoding/json"
	"time"
)

// Quality classifies a resolved email's domain.
type Quality string

const (
	QualityPersonal Quality = "personal"
	QualityBusiness Quality = "business"
)

// resultKeys are the JSON keys owned by ResultRecord; everything else in a
// serialized result belongs to the candidate record.
var resultKeys = map[string]bool{
	"foundEmail":     true,
	"personalEmails": true,
	"isVerified":     true,
	"emailQuality":   true,
	"processedAt":    true,
	"retryCount":     true,
	"skipped":        true,
	"error":          true,
}

// ResultRecord is the output unit of a lookup. IsVerified is nil whenever
// FoundEmail is nil.
type ResultRecord struct {
	Record         CandidateRecord
	FoundEmail     *string
	PersonalEmails []string
	IsVerified     *bool
	EmailQuality   Quality
	ProcessedAt    time.Time
	RetryCount     int
	Skipped        bool
	Error          string
}

// Found reports whether a business email was resolved.
func (r ResultRecord) Found() bool {
	return r.FoundEmail != nil && *r.FoundEmail != ""
}

// Email returns the found email or "".
func (r ResultRecord) Email() string {
	if r.FoundEmail == nil {
		return ""
	}
	return *r.FoundEmail
}

// ClearResolution drops every field produced by a previous lookup attempt.
func (r *ResultRecord) ClearResolution() {
	r.FoundEmail = nil
	r.PersonalEmails = nil
	r.IsVerified = nil
	r.EmailQuality = ""
	r.Skipped = false
	r.Error = ""
}

// MarshalJSON writes the record columns and result fields as one object.
func (r ResultRecord) MarshalJSON() ([]byte, error) {
	m := r.Record.Fields()
	m["foundEmail"] = r.FoundEmail
	personal := r.PersonalEmails
	if personal == nil {
		personal = []string{}
	}
	m["personalEmails"] = personal
	m["isVerified"] = r.IsVerified
	if r.EmailQuality == "" {
		m["emailQuality"] = nil
	} else {
		m["emailQuality"] = r.EmailQuality
	}
	m["processedAt"] = r.ProcessedAt
	m["retryCount"] = r.RetryCount
	if r.Skipped {
		m["skipped"] = true
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON.
func (r *ResultRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out ResultRecord
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if resultKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		fields[k] = val
	}
	out.Record = RecordFromFields(fields)

	decode := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		return json.Unmarshal(v, dst)
	}
	if err := decode("foundEmail", &out.FoundEmail); err != nil {
		return err
	}
	if err := decode("personalEmails", &out.PersonalEmails); err != nil {
		return err
	}
	if err := decode("isVerified", &out.IsVerified); err != nil {
		return err
	}
	var quality *string
	if err := decode("emailQuality", &quality); err != nil {
		return err
	}
	if quality != nil {
		out.EmailQuality = Quality(*quality)
	}
	if err := decode("processedAt", &out.ProcessedAt); err != nil {
		return err
	}
	if err := decode("retryCount", &out.RetryCount); err != nil {
		return err
	}
	if err := decode("skipped", &out.Skipped); err != nil {
		return err
	}
	if err := decode("error", &out.Error); err != nil {
		return err
	}

	*r = out
	return nil
}
