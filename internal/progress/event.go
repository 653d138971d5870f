package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageWindowDone Stage = "WINDOW_DONE"
	StageRunDone    Stage = "RUN_DONE"
	StageRunError   Stage = "RUN_ERROR"
)

// Event captures one milestone of a harvest run.
type Event struct {
	// RunID identifies the harvest run.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Window is the one-based window index for WINDOW_DONE.
	Window int
	// Processed counts ids handled so far.
	Processed int
	// Total is the number of ids in the run.
	Total int
	// Records counts records gathered so far.
	Records int
	// Dur is the window or run duration.
	Dur time.Duration
	// Note carries error text for RUN_ERROR.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageWindowDone:
		if e.Window < 1 {
			return errors.New("window index must be >= 1")
		}
		if e.Processed > e.Total {
			return fmt.Errorf("processed %d exceeds total %d", e.Processed, e.Total)
		}
	case StageRunError:
		if e.Note == "" {
			return errors.New("run error requires a note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
