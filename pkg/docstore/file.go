package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore implements Store for local filesystem documents. URIs are
// relative paths under BaseDir; absolute paths and parent traversal are
// rejected.
//
// The CLI operates on arbitrary user-supplied paths and reads and writes
// them directly, so it never constructs a FileStore. The type is the
// local counterpart of S3Store for embedders that confine documents to
// one directory and want the same Store interface over both backends.
type FileStore struct {
	baseDir string
}

var _ Store = (*FileStore)(nil)

// FileConfig configures a FileStore.
type FileConfig struct {
	BaseDir string
}

// Validate checks that required configuration is present.
func (c FileConfig) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("base dir is required")
	}
	return nil
}

// NewFileStore creates a store rooted at cfg.BaseDir.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &FileStore{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Fetch(ctx context.Context, uri string) (io.ReadCloser, int64, error) {
	_ = ctx
	full, err := s.fullPath(uri)
	if err != nil {
		return nil, 0, s.wrapError("Fetch", uri, err)
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, 0, s.wrapError("Fetch", uri, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, s.wrapError("Fetch", uri, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, 0, &StoreError{Op: "Fetch", Backend: BackendFile, URI: uri, Err: ErrNotFound}
	}
	return f, st.Size(), nil
}

func (s *FileStore) Put(ctx context.Context, uri string, body io.Reader) error {
	_ = ctx
	full, err := s.fullPath(uri)
	if err != nil {
		return s.wrapError("Put", uri, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return s.wrapError("Put", uri, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), "gloss-put-*")
	if err != nil {
		return s.wrapError("Put", uri, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return s.wrapError("Put", uri, err)
	}
	if err := tmp.Close(); err != nil {
		return s.wrapError("Put", uri, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return s.wrapError("Put", uri, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, uri string) error {
	_ = ctx
	full, err := s.fullPath(uri)
	if err != nil {
		return s.wrapError("Delete", uri, err)
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return s.wrapError("Delete", uri, err)
	}
	return nil
}

func (s *FileStore) fullPath(uri string) (string, error) {
	key := strings.TrimSpace(uri)
	key = strings.TrimPrefix(key, "/")
	// Prevent path traversal.
	clean := filepath.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid document path")
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}

func (s *FileStore) wrapError(op, uri string, err error) error {
	wrapped := &StoreError{Op: op, Backend: BackendFile, URI: uri, Err: err}
	if err == nil {
		wrapped.Err = fmt.Errorf("unknown error")
	}
	// Normalize common filesystem errors to the package sentinels.
	if os.IsNotExist(err) {
		wrapped.Err = ErrNotFound
	}
	if os.IsPermission(err) {
		wrapped.Err = ErrAccessDenied
	}
	return wrapped
}
