package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// maxLineSize bounds a single scratch line. Chunk texts are bounded by the
// chunker, but placeholders and escaping add overhead; 16 MiB is far above
// any legitimate line.
const maxLineSize = 16 << 20

// ReadChunkRecords collects per-chunk results from a scratch JSONL file,
// keyed by chunk index. Later lines win on index collision, so a chunk
// rewritten during a run resolves to its latest result.
//
// Malformed lines (typically a torn final line after a crash) are skipped;
// every intact line before them is still recovered. A missing file is an
// error: the caller decides whether a scratch file must exist.
func ReadChunkRecords(path string) (map[int]ChunkRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scratch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	results := make(map[int]ChunkRecord)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Type != TypeChunk {
			continue
		}

		var chunk ChunkRecord
		if err := json.Unmarshal(rec.Data, &chunk); err != nil {
			continue
		}
		results[chunk.Index] = chunk
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan scratch file: %w", err)
	}
	return results, nil
}
