// Package buildui renders build-pipeline progress: a rich bubbletea
// progress bar on a TTY, a plain line-oriented fallback otherwise.
// Grounded on the teacher's internal/ui package (ProgressTracker,
// TUIRenderer, bubbles/progress + bubbletea + lipgloss), narrowed from
// that package's multi-stage indexing/error/warning/sparkline tracker
// down to this pipeline's four build stages.
package buildui

import (
	"sync"
	"time"
)

// Stage identifies one phase of the build pipeline.
type Stage int

const (
	StageChunking Stage = iota
	StageEmbedding
	StageGraphBuild
	StageWriting
)

func (s Stage) String() string {
	switch s {
	case StageChunking:
		return "chunking"
	case StageEmbedding:
		return "embedding"
	case StageGraphBuild:
		return "building graph"
	case StageWriting:
		return "writing manifest"
	default:
		return "unknown"
	}
}

// Tracker accumulates progress within the current stage, safe for
// concurrent use since progress callbacks may fire from a worker pool.
type Tracker struct {
	mu         sync.RWMutex
	stage      Stage
	current    int
	total      int
	stageStart time.Time
	startTime  time.Time
}

// NewTracker creates a tracker starting at StageChunking.
func NewTracker() *Tracker {
	now := time.Now()
	return &Tracker{stage: StageChunking, startTime: now, stageStart: now}
}

// SetStage transitions to a new stage and resets its counters.
func (t *Tracker) SetStage(stage Stage, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = stage
	t.total = total
	t.current = 0
	t.stageStart = time.Now()
}

// Update advances the current stage's progress counter.
func (t *Tracker) Update(current int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = current
}

// Snapshot is a point-in-time read of the tracker's state.
type Snapshot struct {
	Stage    Stage
	Current  int
	Total    int
	Progress float64
	ETA      time.Duration
	Elapsed  time.Duration
}

// Snapshot returns the tracker's current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	progress := 0.0
	if t.total > 0 {
		progress = float64(t.current) / float64(t.total)
		if progress > 1 {
			progress = 1
		}
	}

	var eta time.Duration
	if progress > 0 && progress < 1 {
		elapsed := time.Since(t.stageStart)
		total := time.Duration(float64(elapsed) / progress)
		eta = total - elapsed
	}

	return Snapshot{
		Stage:    t.stage,
		Current:  t.current,
		Total:    t.total,
		Progress: progress,
		ETA:      eta,
		Elapsed:  time.Since(t.startTime),
	}
}
