package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested run is unknown.
var ErrNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a harvest run.
type RunStatus string

// Run statuses.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// Run summarizes one harvest run as seen through its progress events.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	// Windows is the number of completed windows.
	Windows   int
	Processed int
	Total     int
	Records   int
	// ErrorMessage is set for failed runs.
	ErrorMessage *string
}

// RunRepository serves run summaries.
type RunRepository interface {
	// GetRun loads one run or returns ErrNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	// ListRuns returns runs newest first, filtered by an optional status.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]Run, error)
}
