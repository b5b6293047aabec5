package output

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Writer emits typed records to a translation run artifact.
//
// Implementations must be safe for concurrent use: worker goroutines write
// chunk results as they finish, in completion order, not index order.
type Writer interface {
	// WriteChunk emits one chunk's translation result.
	WriteChunk(ctx context.Context, chunk ChunkRecord) error

	// WriteRunError emits an error record.
	WriteRunError(ctx context.Context, rec ErrorRecord) error

	// WriteProgress emits a progress update record.
	WriteProgress(ctx context.Context, rec ProgressRecord) error

	// WriteSummary emits the final summary record.
	WriteSummary(ctx context.Context, rec SummaryRecord) error

	// Close flushes and releases the underlying sink. Writes after Close
	// return ErrWriterClosed.
	Close() error
}

// JSONLWriter writes records as JSON lines.
//
// A mutex serializes writes so concurrent workers never interleave bytes
// of different records on one line.
type JSONLWriter struct {
	mu       sync.Mutex
	out      io.Writer
	closer   io.Closer
	jobID    string
	provider string
	closed   bool
}

var _ Writer = (*JSONLWriter)(nil)

// NewJSONLWriter creates a writer emitting to out. The writer does not
// close out; use NewFileWriter for a file-owning writer.
func NewJSONLWriter(out io.Writer, jobID, provider string) *JSONLWriter {
	return &JSONLWriter{out: out, jobID: jobID, provider: provider}
}

// NewFileWriter creates (truncating) the file at path and returns a writer
// that owns and closes it.
func NewFileWriter(path, jobID, provider string) (*JSONLWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &WriteError{Op: "create", Err: err}
	}
	w := NewJSONLWriter(f, jobID, provider)
	w.closer = f
	return w, nil
}

// WriteChunk implements Writer.
func (w *JSONLWriter) WriteChunk(ctx context.Context, chunk ChunkRecord) error {
	return w.writeRecord(ctx, TypeChunk, chunk)
}

// WriteRunError implements Writer.
func (w *JSONLWriter) WriteRunError(ctx context.Context, rec ErrorRecord) error {
	return w.writeRecord(ctx, TypeError, rec)
}

// WriteProgress implements Writer.
func (w *JSONLWriter) WriteProgress(ctx context.Context, rec ProgressRecord) error {
	return w.writeRecord(ctx, TypeProgress, rec)
}

// WriteSummary implements Writer.
func (w *JSONLWriter) WriteSummary(ctx context.Context, rec SummaryRecord) error {
	return w.writeRecord(ctx, TypeSummary, rec)
}

// Close implements Writer.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// writeRecord marshals the payload into an envelope and writes one line.
func (w *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	// Check context before acquiring the lock.
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "context", Err: err}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	record := Record{
		Type:     recordType,
		TS:       time.Now().UTC(),
		JobID:    w.jobID,
		Provider: w.provider,
		Data:     payload,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	// Re-check context after acquiring the lock; a slow contended writer
	// should not emit after cancellation.
	if err := ctx.Err(); err != nil {
		return &WriteError{Op: "context", Err: err}
	}

	return w.writeAll(line)
}

// writeAll writes the full buffer, retrying on short writes.
func (w *JSONLWriter) writeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := w.out.Write(buf)
		if err != nil {
			return &WriteError{Op: "write", Err: err}
		}
		buf = buf[n:]
	}
	return nil
}
