package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Suffix is appended to the output file's stem to derive the progress file
// path.
const Suffix = "_progress.json"

// PathFor derives the progress file path for an output artifact: a sibling
// named after the output file's stem.
func PathFor(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+Suffix)
}

// Store reads and writes the progress record for one output artifact.
//
// Save is atomic (temp file + rename) so a concurrent reader never observes
// a torn record. Callers serialize Save under their own bookkeeping lock;
// the store itself does not synchronize writers.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store whose record path is derived from outputPath.
func NewStore(outputPath string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: PathFor(outputPath), log: log}
}

// Path returns the progress file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted record, or a fresh empty record when the file
// is missing, unreadable, corrupt, or carries an unknown schema version.
// Corruption is logged and treated as "start fresh"; it never propagates.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Progress file unreadable, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return NewRecord("", 0)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn("Progress file corrupt, starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return NewRecord("", 0)
	}
	if rec.Version != SchemaVersion {
		s.log.Warn("Progress file schema version mismatch, starting fresh",
			zap.String("path", s.path), zap.Int("version", rec.Version))
		return NewRecord("", 0)
	}
	if rec.TranslatedChunks == nil {
		rec.TranslatedChunks = make(map[int]string)
	}
	return &rec
}

// Save persists the record atomically, stamping LastUpdated.
func (s *Store) Save(rec *Record) error {
	rec.Version = SchemaVersion
	rec.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress record: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create progress dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp progress file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename progress file: %w", err)
	}
	return nil
}

// Delete removes the progress file. Missing files are not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}
