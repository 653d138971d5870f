package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/jumpit-harvester/internal/progress"
)

const defaultHistory = 32

// Tracker is a progress.Sink that folds events into Run summaries and serves
// them through RunRepository. Only the most recent runs are retained.
type Tracker struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]*Run
	order   []uuid.UUID
	history int
}

// NewTracker keeps up to history runs; non-positive values use a default.
func NewTracker(history int) *Tracker {
	if history <= 0 {
		history = defaultHistory
	}
	return &Tracker{runs: make(map[uuid.UUID]*Run), history: history}
}

// Consume implements progress.Sink.
func (t *Tracker) Consume(_ context.Context, batch []progress.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, evt := range batch {
		run := t.runFor(evt)
		switch evt.Stage {
		case progress.StageRunStart:
			run.StartedAt = evt.TS
			run.Status = RunRunning
		case progress.StageWindowDone:
			run.Windows = evt.Window
			run.Processed = evt.Processed
			run.Total = evt.Total
			run.Records = evt.Records
		case progress.StageRunDone:
			finished := evt.TS
			run.FinishedAt = &finished
			run.Status = RunSuccess
			run.Processed = evt.Processed
			run.Total = evt.Total
			run.Records = evt.Records
		case progress.StageRunError:
			finished := evt.TS
			msg := evt.Note
			run.FinishedAt = &finished
			run.Status = RunError
			run.ErrorMessage = &msg
			run.Records = evt.Records
		}
	}
	return nil
}

// runFor returns the run for evt, creating it and evicting the oldest when
// history is full. Caller holds mu.
func (t *Tracker) runFor(evt progress.Event) *Run {
	if run, ok := t.runs[evt.RunID]; ok {
		return run
	}
	run := &Run{ID: evt.RunID, StartedAt: evt.TS, Status: RunRunning}
	t.runs[evt.RunID] = run
	t.order = append(t.order, evt.RunID)
	if len(t.order) > t.history {
		delete(t.runs, t.order[0])
		t.order = t.order[1:]
	}
	return run
}

// Close implements progress.Sink.
func (t *Tracker) Close(context.Context) error {
	return nil
}

// GetRun implements RunRepository.
func (t *Tracker) GetRun(_ context.Context, id uuid.UUID) (Run, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return *run, nil
}

// ListRuns implements RunRepository.
func (t *Tracker) ListRuns(_ context.Context, status *RunStatus, limit, offset int) ([]Run, error) {
	t.mu.RLock()
	out := make([]Run, 0, len(t.runs))
	for _, run := range t.runs {
		if status != nil && run.Status != *status {
			continue
		}
		out = append(out, *run)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if offset >= len(out) {
		return []Run{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
