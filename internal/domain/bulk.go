package domain

import "time"

// RateLimitInfo describes the static daily quota reported with bulk results.
type RateLimitInfo struct {
	DailyLimit     int       `json:"dailyLimit"`
	RemainingToday int       `json:"remainingToday"`
	ResetTime      time.Time `json:"resetTime"`
}

// BulkRequest is the persisted snapshot of one bulk upload page. Results
// holds only the paginated slice, never the whole file.
type BulkRequest struct {
	SearchID           string         `json:"searchId"`
	FileName           string         `json:"fileName"`
	RecordCount        int            `json:"recordCount"`
	SuccessCount       int            `json:"successCount"`
	VerifiedCount      int            `json:"verifiedCount"`
	TotalRecordsInFile int            `json:"totalRecordsInFile"`
	Page               int            `json:"page"`
	PageSize           int            `json:"pageSize"`
	TotalPages         int            `json:"totalPages"`
	Timestamp          time.Time      `json:"timestamp"`
	Supersedes         string         `json:"supersedes,omitempty"`
	RateLimitInfo      *RateLimitInfo `json:"rateLimitInfo,omitempty"`
	Results            []ResultRecord `json:"results"`
}

// Recount refreshes the aggregate counters from Results.
func (b *BulkRequest) Recount() {
	b.RecordCount = len(b.Results)
	b.SuccessCount = 0
	b.VerifiedCount = 0
	for _, r := range b.Results {
		if r.Found() {
			b.SuccessCount++
		}
		if r.IsVerified != nil && *r.IsVerified {
			b.VerifiedCount++
		}
	}
}

// BulkSummary is the history listing entry for a stored bulk request.
type BulkSummary struct {
	Key          string     `json:"key"`
	SearchID     string     `json:"searchId"`
	FileName     string     `json:"fileName"`
	RecordCount  int        `json:"recordCount"`
	SuccessCount int        `json:"successCount"`
	LastModified time.Time  `json:"lastModified"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}
