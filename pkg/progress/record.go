// Package progress persists per-input translation progress so interrupted
// runs can resume without re-translating completed chunks.
//
// The record is a JSON file living next to the final output artifact. It is
// consumed and produced only by this pipeline; it is not a public wire
// format, but it is versioned so incompatible readers treat it as absent
// rather than misinterpreting it.
package progress

import "time"

// SchemaVersion is the current record schema version. Records with a
// different version are treated as absent on load.
const SchemaVersion = 1

// Record is the persisted progress state for one input/output pair.
type Record struct {
	// Version is the record schema version.
	Version int `json:"version"`

	// ConfigFingerprint is the canonical hash of every setting that
	// affects translation output. A mismatch invalidates the record.
	ConfigFingerprint string `json:"config_fingerprint"`

	// TotalChunks is the chunk count of the input this record tracks.
	// A mismatch with a fresh chunking invalidates the record.
	TotalChunks int `json:"total_chunks"`

	// Status is the job status as of the last save.
	Status string `json:"status"`

	// TranslatedChunks maps chunk index to successfully translated text.
	// Within a run it only grows; it is reset wholesale on invalidation.
	TranslatedChunks map[int]string `json:"translated_chunks"`

	// LastUpdated is the time of the last save.
	LastUpdated time.Time `json:"last_updated"`
}

// NewRecord returns a fresh record for the given fingerprint and chunk
// count.
func NewRecord(fingerprint string, totalChunks int) *Record {
	return &Record{
		Version:           SchemaVersion,
		ConfigFingerprint: fingerprint,
		TotalChunks:       totalChunks,
		TranslatedChunks:  make(map[int]string),
	}
}

// Empty reports whether the record carries no prior run state.
func (r *Record) Empty() bool {
	return r == nil || r.ConfigFingerprint == "" && r.TotalChunks == 0 && len(r.TranslatedChunks) == 0
}

// Matches reports whether a prior record is resumable for the given
// fingerprint and freshly computed chunk count. Both must agree; anything
// else signals a materially different input or config and forces a full
// restart.
func (r *Record) Matches(fingerprint string, totalChunks int) bool {
	return r != nil &&
		r.ConfigFingerprint == fingerprint &&
		r.TotalChunks == totalChunks
}

// DoneIndexes returns the set of completed chunk indexes.
func (r *Record) DoneIndexes() map[int]bool {
	done := make(map[int]bool, len(r.TranslatedChunks))
	for idx := range r.TranslatedChunks {
		done[idx] = true
	}
	return done
}
