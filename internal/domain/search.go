package domain

import "time"

// SingleSearchResult is the persisted outcome of one single-record search.
type SingleSearchResult struct {
	SearchID       string    `json:"searchId"`
	UserID         string    `json:"userId,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	LinkedIn       string    `json:"linkedin"`
	CompanyName    string    `json:"companyName"`
	Email          string    `json:"email,omitempty"`
	PersonalEmails []string  `json:"personalEmails,omitempty"`
	Error          string    `json:"error,omitempty"`
	Cached         bool      `json:"cached,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SingleSummary is the history listing entry for a stored single search.
type SingleSummary struct {
	Key            string     `json:"key"`
	LastModified   time.Time  `json:"lastModified"`
	SearchID       string     `json:"searchId"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	CompanyName    string     `json:"companyName"`
	LinkedIn       string     `json:"linkedin,omitempty"`
	Email          string     `json:"email,omitempty"`
	PersonalEmails []string   `json:"personalEmails"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
}
