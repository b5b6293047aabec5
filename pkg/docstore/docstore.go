// Package docstore moves whole documents between the pipeline's local
// working files and their source or destination locations. The run
// orchestrator only ever touches local paths; callers use a Store to
// stage remote inputs before a run and publish final outputs after it.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Backend identifiers used in wrapped errors.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Sentinel errors normalized from backend failures. Match with errors.Is
// or the predicate helpers.
var (
	ErrNotFound     = errors.New("document not found")
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidURI   = errors.New("invalid document URI")
)

// StoreError wraps a backend failure with operation context.
type StoreError struct {
	Op      string
	Backend string
	URI     string
	Err     error
}

func (e *StoreError) Error() string {
	if e.URI != "" {
		return fmt.Sprintf("docstore: %s %s %q: %v", e.Backend, e.Op, e.URI, e.Err)
	}
	return fmt.Sprintf("docstore: %s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound reports whether err indicates a missing document.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAccessDenied reports whether err indicates a permissions failure.
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }

// Store is the document transfer capability. Implementations must be
// safe for concurrent use.
type Store interface {
	// Fetch opens the document at uri for reading. The second return is
	// the document size when known, -1 otherwise.
	Fetch(ctx context.Context, uri string) (io.ReadCloser, int64, error)

	// Put stores body at uri, replacing any existing document.
	Put(ctx context.Context, uri string, body io.Reader) error

	// Delete removes the document at uri. Deleting a missing document is
	// not an error.
	Delete(ctx context.Context, uri string) error

	Close() error
}

// IsS3URI reports whether uri addresses an S3 object.
func IsS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", &StoreError{Op: "ParseS3URI", Backend: BackendS3, URI: uri, Err: ErrInvalidURI}
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", &StoreError{Op: "ParseS3URI", Backend: BackendS3, URI: uri, Err: ErrInvalidURI}
	}
	return bucket, key, nil
}
