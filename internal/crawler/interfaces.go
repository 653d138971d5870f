package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Fetcher issues GET requests against the upstream. Non-2xx statuses are
// returned as responses; only transport failures produce an error.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Limiter gates outgoing requests.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Clock returns the current time and paces the pipeline (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// IDSource enumerates every listing currently published upstream.
type IDSource interface {
	AllIDs(ctx context.Context) ([]ListingID, error)
}

// DetailSource fetches and normalizes one listing. A false return means the
// listing contributes no record.
type DetailSource interface {
	FetchDetail(ctx context.Context, id ListingID) (Record, bool)
}

// ResultSink persists a finished batch.
type ResultSink interface {
	SaveResults(ctx context.Context, records []Record) (Location, error)
}

// Notifier announces that a batch landed in object storage.
type Notifier interface {
	NotifyObject(ctx context.Context, loc Location) (string, error)
}

// ListingStore performs idempotent inserts keyed by (platform, job_id).
type ListingStore interface {
	InsertListings(ctx context.Context, records []Record, insertedAt time.Time) (InsertResult, error)
	Close() error
}
