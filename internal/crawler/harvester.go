package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
	"github.com/JakeFAU/jumpit-harvester/internal/progress"
)

// Harvester runs one complete harvest: resolve ids, fetch details in windows,
// persist the batch to every sink and announce any uploaded object.
type Harvester struct {
	ids      IDSource
	batcher  *Batcher
	sinks    []ResultSink
	notifier Notifier
	idGen    IDGenerator
	clock    Clock
	emitter  progress.Emitter
	logger   *zap.Logger
}

// HarvesterDeps groups the collaborators of a Harvester. Notifier and Emitter are optional.
type HarvesterDeps struct {
	IDs      IDSource
	Batcher  *Batcher
	Sinks    []ResultSink
	Notifier Notifier
	IDGen    IDGenerator
	Clock    Clock
	Emitter  progress.Emitter
	Logger   *zap.Logger
}

// NewHarvester validates deps and builds a Harvester.
func NewHarvester(deps HarvesterDeps) (*Harvester, error) {
	switch {
	case deps.IDs == nil:
		return nil, errors.New("id source is required")
	case deps.Batcher == nil:
		return nil, errors.New("batcher is required")
	case len(deps.Sinks) == 0:
		return nil, errors.New("at least one result sink is required")
	case deps.IDGen == nil:
		return nil, errors.New("id generator is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		ids:      deps.IDs,
		batcher:  deps.Batcher,
		sinks:    deps.Sinks,
		notifier: deps.Notifier,
		idGen:    deps.IDGen,
		clock:    deps.Clock,
		emitter:  deps.Emitter,
		logger:   logger,
	}, nil
}

// Run executes the harvest. An UpstreamError or a sink failure aborts it.
func (h *Harvester) Run(ctx context.Context) (RunSummary, error) {
	runID, err := h.idGen.NewRawID()
	if err != nil {
		return RunSummary{}, fmt.Errorf("generate run id: %w", err)
	}
	start := h.clock.Now()
	summary := RunSummary{RunID: runID.String()}
	logger := h.logger.With(zap.String("run_id", summary.RunID))
	h.emit(progress.Event{RunID: runID, TS: start, Stage: progress.StageRunStart})

	summary, err = h.run(ctx, runID, summary, logger)
	summary.Elapsed = h.clock.Now().Sub(start)
	if err != nil {
		h.emit(progress.Event{
			RunID: runID, TS: h.clock.Now(), Stage: progress.StageRunError,
			Total: summary.IDs, Records: summary.Records, Dur: summary.Elapsed, Note: err.Error(),
		})
		return summary, err
	}

	h.emit(progress.Event{
		RunID: runID, TS: h.clock.Now(), Stage: progress.StageRunDone,
		Processed: summary.IDs, Total: summary.IDs, Records: summary.Records, Dur: summary.Elapsed,
	})
	logger.Info("harvest finished",
		zap.Int("ids", summary.IDs),
		zap.Int("records", summary.Records),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

func (h *Harvester) run(ctx context.Context, runID uuid.UUID, summary RunSummary, logger *zap.Logger) (RunSummary, error) {
	ids, err := h.ids.AllIDs(ctx)
	if err != nil {
		return summary, fmt.Errorf("resolve listing ids: %w", err)
	}
	summary.IDs = len(ids)

	records, err := h.batcher.Run(ctx, runID, ids)
	summary.Records = len(records)
	metrics.ObserveRecords(len(records))
	if err != nil {
		return summary, fmt.Errorf("fetch details: %w", err)
	}

	for _, sink := range h.sinks {
		loc, err := sink.SaveResults(ctx, records)
		if err != nil {
			return summary, fmt.Errorf("save results: %w", err)
		}
		summary.Locations = append(summary.Locations, loc)
		logger.Info("results saved", zap.String("uri", loc.URI), zap.Int("records", len(records)))
	}

	if h.notifier == nil {
		return summary, nil
	}
	for _, loc := range summary.Locations {
		if loc.Bucket == "" {
			continue
		}
		msgID, err := h.notifier.NotifyObject(ctx, loc)
		if err != nil {
			return summary, fmt.Errorf("notify %s: %w", loc.URI, err)
		}
		logger.Info("object notification published", zap.String("uri", loc.URI), zap.String("message_id", msgID))
	}
	return summary, nil
}

func (h *Harvester) emit(evt progress.Event) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(evt)
}
