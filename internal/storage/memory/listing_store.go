// Package memory provides an in-process listing store for dry runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/jumpit-harvester/internal/crawler"
)

type key struct {
	platform string
	jobID    crawler.ListingID
}

// Row is a stored listing with its insertion day.
type Row struct {
	crawler.Record
	InsertedAt time.Time
}

// ListingStore keeps the first row seen per (platform, job_id).
type ListingStore struct {
	mu   sync.Mutex
	rows map[key]Row
}

// New creates an empty store.
func New() *ListingStore {
	return &ListingStore{rows: make(map[key]Row)}
}

// InsertListings adds records whose key is not yet present.
func (s *ListingStore) InsertListings(
	_ context.Context,
	records []crawler.Record,
	insertedAt time.Time,
) (crawler.InsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result crawler.InsertResult
	for _, rec := range records {
		k := key{platform: rec.Platform, jobID: rec.JobID}
		if _, exists := s.rows[k]; exists {
			result.Skipped++
			continue
		}
		s.rows[k] = Row{Record: rec, InsertedAt: insertedAt}
		result.Inserted++
	}
	return result, nil
}

// Rows returns a snapshot ordered by platform then job id.
func (s *ListingStore) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].JobID < out[j].JobID
	})
	return out
}

// Close implements crawler.ListingStore.
func (s *ListingStore) Close() error {
	return nil
}
