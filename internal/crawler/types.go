package crawler

import (
	"fmt"
	"net/http"
	"time"
)

// PageSize is the number of listings the upstream returns per page.
const PageSize = 16

// ListingID identifies one job posting on the upstream platform.
type ListingID int64

// Record is the normalized unit of output, one per successfully fetched listing.
type Record struct {
	Platform string    `json:"platform"`
	JobID    ListingID `json:"job_id"`
	Company  string    `json:"company"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	URL      string    `json:"url"`
}

// Validate reports whether the record carries the uniqueness key required downstream.
func (r Record) Validate() error {
	if r.Platform == "" {
		return fmt.Errorf("record %d: platform is required", r.JobID)
	}
	if r.JobID <= 0 {
		return fmt.Errorf("record job_id must be > 0, got %d", r.JobID)
	}
	return nil
}

// Location describes where a result sink persisted a batch.
type Location struct {
	URI    string
	Bucket string
	Object string
}

// InsertResult counts the outcome of an idempotent batch insert.
type InsertResult struct {
	Inserted int
	Skipped  int
}

// FetchRequest captures everything needed to GET an upstream URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// RunSummary reports the outcome of one harvest run.
type RunSummary struct {
	RunID     string
	IDs       int
	Records   int
	Locations []Location
	Elapsed   time.Duration
}
