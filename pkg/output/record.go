// Package output provides JSONL output for translation run artifacts.
//
// The scratch file written during a run is a sequence of typed record
// envelopes, one JSON object per line. Each line is self-contained, so a
// partially written final line (crash mid-write) never invalidates the
// lines before it.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: gloss.<type>.v<version>
const (
	// TypeChunk identifies per-chunk translation result records.
	TypeChunk = "gloss.chunk.v1"

	// TypeError identifies error records.
	TypeError = "gloss.error.v1"

	// TypeProgress identifies progress update records.
	TypeProgress = "gloss.progress.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "gloss.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line contains a Record with a type-specific payload in the Data
// field. The type field determines how to interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "gloss.chunk.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this translation run.
	JobID string `json:"job_id"`

	// Provider identifies the translation provider (e.g., "gemini").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// Chunk outcome constants.
const (
	// OutcomeSuccess marks a chunk whose translation succeeded.
	OutcomeSuccess = "success"

	// OutcomeFailed marks a chunk whose slot holds a failure placeholder.
	OutcomeFailed = "failed"
)

// ChunkRecord is the data payload for one chunk's translation result.
type ChunkRecord struct {
	// Index is the chunk's position in the original document.
	Index int `json:"index"`

	// Text is the translated text, or a failure placeholder.
	Text string `json:"text"`

	// Outcome is "success" or "failed".
	Outcome string `json:"outcome"`

	// Error describes the failure when Outcome is "failed".
	Error string `json:"error,omitempty"`
}

// ErrorRecord is the data payload for errors.
//
// Errors are emitted as records rather than failing the entire run,
// allowing partial results when some chunks fail.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Chunk is the chunk index related to this error, if applicable.
	Chunk int `json:"chunk,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeContentSafety indicates a content-safety rejection.
	ErrCodeContentSafety = "CONTENT_SAFETY"

	// ErrCodeRateLimited indicates provider throttling.
	ErrCodeRateLimited = "RATE_LIMITED"

	// ErrCodeInvalidRequest indicates a rejected request.
	ErrCodeInvalidRequest = "INVALID_REQUEST"

	// ErrCodeAuthExhausted indicates failed auth or exhausted quota.
	ErrCodeAuthExhausted = "AUTH_EXHAUSTED"

	// ErrCodeTransient indicates a temporary provider failure.
	ErrCodeTransient = "TRANSIENT"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// ProgressRecord is the data payload for progress updates.
type ProgressRecord struct {
	// Total is the total chunk count for the run.
	Total int `json:"total"`

	// Processed is the number of chunks finished so far.
	Processed int `json:"processed"`

	// Successful is the number of chunks translated successfully.
	Successful int `json:"successful"`

	// Failed is the number of chunks recorded as failed.
	Failed int `json:"failed"`

	// CurrentChunk is the most recently finished chunk index.
	CurrentChunk int `json:"current_chunk"`

	// Status is the job status at emission time.
	Status string `json:"status"`
}

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Total is the total chunk count for the run.
	Total int `json:"total"`

	// Successful is the number of chunks translated successfully.
	Successful int `json:"successful"`

	// Failed is the number of chunks recorded as failed.
	Failed int `json:"failed"`

	// Status is the terminal job status.
	Status string `json:"status"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
