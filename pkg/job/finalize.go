package job

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/glosskit/gloss/pkg/output"
	"github.com/glosskit/gloss/pkg/progress"
)

// finalizeEnv carries everything finalization needs. Finalization always
// runs, whatever ended the pool: its job is to lose no completed work.
type finalizeEnv struct {
	log         *zap.Logger
	store       *progress.Store
	rec         *progress.Record
	writer      output.Writer
	scratchPath string
	outputPath  string
	fingerprint string
	total       int
	start       time.Time
	fatal       error
	cb          Callbacks
}

// finalize merges this run's scratch results with prior progress, writes
// the final output, persists the terminal record, and removes the
// scratch file.
func (r *Runner) finalize(env finalizeEnv) (Status, error) {
	r.bookMu.Lock()
	cnt := r.counters
	lastErr := r.lastError
	r.bookMu.Unlock()

	terminal := terminalStatus(r.stopping(), env.fatal, cnt, env.total)
	elapsed := time.Since(env.start)

	// The summary record uses a fresh context: it must land even when the
	// run's context was cancelled.
	if err := env.writer.WriteSummary(context.Background(), output.SummaryRecord{
		Total:         env.total,
		Successful:    cnt.successful,
		Failed:        cnt.failed,
		Status:        terminal.String(),
		Duration:      elapsed,
		DurationHuman: elapsed.Round(time.Millisecond).String(),
	}); err != nil {
		env.log.Warn("Failed to write summary record", zap.Error(err))
	}
	if err := env.writer.Close(); err != nil {
		env.log.Warn("Failed to close scratch output", zap.Error(err))
	}

	results, err := output.ReadChunkRecords(env.scratchPath)
	if err != nil {
		env.log.Warn("Failed to read scratch results", zap.Error(err))
		results = nil
	}

	if terminal == StatusStopped {
		// Re-read the record from disk. The per-chunk save path may have
		// persisted completions this goroutine has not observed; the disk
		// copy is authoritative for what a later resume will see.
		if onDisk := env.store.Load(); onDisk.Matches(env.fingerprint, env.total) {
			for idx, text := range onDisk.TranslatedChunks {
				if _, ok := env.rec.TranslatedChunks[idx]; !ok {
					env.rec.TranslatedChunks[idx] = text
				}
			}
		}
	}

	// Merge prior successes with this run's results, new wins. Failed
	// chunks contribute their placeholder to the output but stay out of
	// the record, so a resume retries them.
	merged := make(map[int]string, len(env.rec.TranslatedChunks)+len(results))
	for idx, text := range env.rec.TranslatedChunks {
		merged[idx] = text
	}
	for idx, cr := range results {
		merged[idx] = cr.Text
	}

	if env.fatal == nil || len(merged) > 0 {
		var sb strings.Builder
		for idx := 0; idx < env.total; idx++ {
			text, ok := merged[idx]
			if !ok {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString(chunkSeparator)
			}
			sb.WriteString(text)
		}
		if werr := writeFileAtomic(env.outputPath, []byte(sb.String())); werr != nil {
			env.log.Error("Failed to write final output", zap.Error(werr))
			if env.fatal == nil {
				env.fatal = fmt.Errorf("write final output: %w", werr)
				terminal = StatusError
			}
		}
	}

	env.rec.Status = terminal.String()
	if serr := env.store.Save(env.rec); serr != nil {
		env.log.Error("Failed to persist terminal record", zap.Error(serr))
		if env.fatal == nil {
			env.fatal = fmt.Errorf("persist progress: %w", serr)
			terminal = StatusError
		}
	}

	if rerr := os.Remove(env.scratchPath); rerr != nil && !os.IsNotExist(rerr) {
		env.log.Warn("Failed to remove scratch output", zap.Error(rerr))
	}

	if env.cb.OnProgress != nil {
		env.cb.OnProgress(Progress{
			Total:        env.total,
			Processed:    cnt.processed,
			Successful:   cnt.successful,
			Failed:       cnt.failed,
			CurrentChunk: -1,
			Status:       terminal,
			Message: fmt.Sprintf("%d/%d chunks translated, %d failed",
				cnt.successful, env.total, cnt.failed),
			LastError: lastErr,
		})
	}

	env.log.Info("Run finished",
		zap.String("status", terminal.String()),
		zap.Int("total", env.total),
		zap.Int("successful", cnt.successful),
		zap.Int("failed", cnt.failed),
		zap.Duration("elapsed", elapsed))

	return terminal, env.fatal
}

// terminalStatus resolves the final status of a run. A cooperative stop
// takes precedence; a run-fatal error beats per-chunk outcomes.
func terminalStatus(stopped bool, fatal error, cnt counters, total int) Status {
	switch {
	case stopped:
		return StatusStopped
	case fatal != nil:
		return StatusError
	case cnt.failed > 0:
		return StatusCompletedWithErrors
	case cnt.successful == total:
		return StatusCompleted
	default:
		return StatusIncomplete
	}
}
