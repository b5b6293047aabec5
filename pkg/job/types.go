// Package job implements the resumable translation run orchestrator: it
// computes the chunk set, reconciles it against the progress store,
// schedules outstanding chunks onto a bounded worker pool, aggregates
// progress, merges results, and finalizes output and metadata.
package job

import "errors"

// Status represents the lifecycle state of a translation job.
//
// Terminal statuses are persisted into the progress record, so these
// values are a stable on-disk contract. New statuses may be added;
// existing values must never be renamed.
type Status string

const (
	// StatusIdle means no run is active. Initial and terminal-reentrant.
	StatusIdle Status = "idle"

	// StatusPreparing means the run is chunking input and reconciling
	// prior progress.
	StatusPreparing Status = "preparing"

	// StatusRunning means chunk tasks are being processed. Persisted as
	// the record status while a run is live.
	StatusRunning Status = "in_progress"

	// StatusCompleted means every chunk translated successfully.
	StatusCompleted Status = "completed"

	// StatusCompletedWithErrors means the run finished with at least one
	// failed chunk recorded as a placeholder.
	StatusCompletedWithErrors Status = "completed_with_errors"

	// StatusStopped means a cooperative stop ended the run early.
	StatusStopped Status = "stopped"

	// StatusError means an infrastructure failure aborted the run.
	StatusError Status = "error"

	// StatusIncomplete is the defensive fallback when counters are
	// inconsistent at finalization. Unreachable under correct
	// bookkeeping.
	StatusIncomplete Status = "unknown_incomplete"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusStopped, StatusError, StatusIncomplete:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ErrAlreadyRunning is returned by Start when a run is active. Starts are
// rejected, not queued.
var ErrAlreadyRunning = errors.New("a translation run is already active")

// Progress is the snapshot DTO handed to the progress callback. All
// counter fields are read under one lock, so they are mutually
// consistent: Processed == Successful + Failed always holds.
type Progress struct {
	// Total is the chunk count for the run.
	Total int

	// Processed is the number of chunks finished (success or failure).
	Processed int

	// Successful is the number of chunks translated successfully.
	Successful int

	// Failed is the number of chunks recorded as failed.
	Failed int

	// CurrentChunk is the most recently finished chunk index, or -1
	// before any chunk finishes.
	CurrentChunk int

	// Status is the job status at snapshot time.
	Status Status

	// Message is a human-readable status line.
	Message string

	// LastError describes the most recent chunk failure, if any.
	LastError string
}

// Callbacks are the optional observer hooks for a run. Both may be nil.
// They are invoked from the orchestrator's synchronized update path, so
// implementations must not block for long and must not call Start.
type Callbacks struct {
	// OnProgress fires after every chunk completion and at run
	// boundaries.
	OnProgress func(Progress)

	// OnStatus fires on every state transition.
	OnStatus func(Status)
}

// counters is the run-scoped tally. It is owned by the Runner and only
// ever mutated under the Runner's bookkeeping lock; worker tasks report
// outcomes through that single synchronized path.
type counters struct {
	processed  int
	successful int
	failed     int
}
