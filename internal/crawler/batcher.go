package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jumpit-harvester/internal/metrics"
	"github.com/JakeFAU/jumpit-harvester/internal/progress"
)

// Window defaults.
const (
	DefaultWindowSize  = 100
	DefaultWindowDelay = 1500 * time.Millisecond
)

// BatchConfig controls window size and the pause between windows.
type BatchConfig struct {
	WindowSize int
	Delay      time.Duration
}

// Batcher drives a DetailSource over all ids in fixed windows. Every id in a
// window is fetched concurrently and the window completes only once all of
// them have returned; windows run strictly one after another.
type Batcher struct {
	details DetailSource
	clock   Clock
	emitter progress.Emitter
	cfg     BatchConfig
	logger  *zap.Logger
}

// NewBatcher builds a Batcher. emitter may be nil.
func NewBatcher(details DetailSource, clock Clock, emitter progress.Emitter, cfg BatchConfig, logger *zap.Logger) *Batcher {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		details: details,
		clock:   clock,
		emitter: emitter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Windows partitions ids into consecutive slices of at most size elements.
func Windows(ids []ListingID, size int) [][]ListingID {
	if size <= 0 {
		size = DefaultWindowSize
	}
	windows := make([][]ListingID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		windows = append(windows, ids[start:end])
	}
	return windows
}

// Run fetches every id and returns the records that succeeded. The returned
// error is non-nil only when ctx ends; records gathered so far are returned with it.
func (b *Batcher) Run(ctx context.Context, runID uuid.UUID, ids []ListingID) ([]Record, error) {
	start := b.clock.Now()
	records := make([]Record, 0, len(ids))
	processed := 0

	for i, window := range Windows(ids, b.cfg.WindowSize) {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("batch interrupted before window %d: %w", i+1, err)
		}
		windowStart := b.clock.Now()
		records = append(records, b.runWindow(ctx, window)...)
		processed += len(window)

		now := b.clock.Now()
		metrics.ObserveWindow(now.Sub(windowStart))
		b.logger.Info("window complete",
			zap.Int("window", i+1),
			zap.Int("processed", processed),
			zap.Int("total", len(ids)),
			zap.Int("records", len(records)),
			zap.Time("at", now),
		)
		b.emit(progress.Event{
			RunID:     runID,
			TS:        now,
			Stage:     progress.StageWindowDone,
			Window:    i + 1,
			Processed: processed,
			Total:     len(ids),
			Records:   len(records),
			Dur:       now.Sub(windowStart),
		})

		if err := b.clock.Sleep(ctx, b.cfg.Delay); err != nil {
			return records, fmt.Errorf("pause after window %d: %w", i+1, err)
		}
	}

	b.logger.Info("batch complete",
		zap.Int("ids", len(ids)),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", b.clock.Now().Sub(start)),
	)
	return records, nil
}

// runWindow fans out one goroutine per id. Results come back over a channel
// sized for the whole window and are appended by this goroutine alone.
func (b *Batcher) runWindow(ctx context.Context, window []ListingID) []Record {
	results := make(chan Record, len(window))
	var wg sync.WaitGroup
	for _, id := range window {
		wg.Add(1)
		go func(id ListingID) {
			defer wg.Done()
			if rec, ok := b.details.FetchDetail(ctx, id); ok {
				results <- rec
			}
		}(id)
	}
	wg.Wait()
	close(results)

	out := make([]Record, 0, len(window))
	for rec := range results {
		out = append(out, rec)
	}
	return out
}

func (b *Batcher) emit(evt progress.Event) {
	if b.emitter == nil {
		return
	}
	b.emitter.Emit(evt)
}
