package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadRecord reads a progress record file strictly. Unlike Store.Load,
// which tolerates corruption by starting fresh, ReadRecord surfaces
// read and decode errors. It is meant for inspection surfaces (job
// listings, status endpoints) where a broken record is worth reporting.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read progress record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode progress record %s: %w", path, err)
	}
	if rec.Version != SchemaVersion {
		return nil, fmt.Errorf("progress record %s: unsupported schema version %d", path, rec.Version)
	}
	if rec.TranslatedChunks == nil {
		rec.TranslatedChunks = make(map[int]string)
	}
	return &rec, nil
}

// ListRecords returns the progress record files under dir, sorted by
// path. Non-record files are ignored.
func ListRecords(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Suffix))
	if err != nil {
		return nil, fmt.Errorf("list progress records: %w", err)
	}
	return matches, nil
}

// JobName derives the job name from a record path: the record filename
// with the progress suffix removed.
func JobName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Suffix)
}
