package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glosskit/gloss/pkg/chunker"
	"github.com/glosskit/gloss/pkg/output"
	"github.com/glosskit/gloss/pkg/progress"
	"github.com/glosskit/gloss/pkg/provider"
	"github.com/glosskit/gloss/pkg/translator"
)

// Defaults applied when configuration values are missing or invalid.
const (
	DefaultMaxWorkers = 4
	DefaultMaxChars   = 6000
)

// ScratchSuffix is appended to the final output path to derive the
// per-run scratch file. The scratch file is deleted on finalization.
const ScratchSuffix = ".current_run.tmp"

// chunkSeparator joins translated chunks in the final output.
const chunkSeparator = "\n\n"

// ChunkTranslator is the translation capability the runner schedules.
// *translator.Engine satisfies it.
type ChunkTranslator interface {
	Translate(ctx context.Context, text string, pol translator.Policy) (string, error)
}

// Config holds the run parameters of a Runner.
type Config struct {
	// MaxChars bounds chunk size. Non-positive uses DefaultMaxChars.
	MaxChars int

	// MaxWorkers bounds the worker pool. Non-positive uses
	// DefaultMaxWorkers.
	MaxWorkers int

	// Policy bounds the per-chunk content-safety split strategy.
	Policy translator.Policy

	// ProviderName tags scratch records with the provider in use.
	ProviderName string

	// Fingerprint collects the translation-affecting settings hashed
	// into the progress record.
	Fingerprint progress.FingerprintConfig
}

// Runner executes translation jobs one at a time. It is instantiable per
// job; all counters are run-scoped, never global.
//
// Start while a run is active is rejected. RequestStop is cooperative:
// it prevents new task submission and short-circuits queued tasks, but
// never interrupts an in-flight provider call.
type Runner struct {
	cfg    Config
	engine ChunkTranslator
	log    *zap.Logger

	// stateMu guards the lifecycle state: status and the stop flag.
	stateMu       sync.Mutex
	status        Status
	stopRequested bool

	// bookMu guards run bookkeeping: counters, the in-memory progress
	// record, record saves, and snapshot construction. It is never held
	// while stateMu is acquired, so the two locks cannot deadlock.
	bookMu    sync.Mutex
	counters  counters
	lastError string
}

// New creates a Runner. Invalid config values fall back to defaults with
// a warning.
func New(cfg Config, engine ChunkTranslator, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxWorkers <= 0 {
		log.Warn("Invalid worker count, using default",
			zap.Int("max_workers", cfg.MaxWorkers), zap.Int("default", DefaultMaxWorkers))
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &Runner{cfg: cfg, engine: engine, log: log, status: StatusIdle}
}

// Status returns the current lifecycle state.
func (r *Runner) Status() Status {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.status
}

// RequestStop asks the active run to stop cooperatively. Calling it on a
// job that is not running is a no-op.
func (r *Runner) RequestStop() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if r.status != StatusPreparing && r.status != StatusRunning {
		r.log.Debug("Stop requested but no run is active")
		return
	}
	r.stopRequested = true
	r.log.Info("Stop requested")
}

// stopping reports whether a cooperative stop was requested.
func (r *Runner) stopping() bool {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.stopRequested
}

// setStatus transitions the lifecycle state and notifies the observer.
func (r *Runner) setStatus(s Status, cb Callbacks) {
	r.stateMu.Lock()
	r.status = s
	r.stateMu.Unlock()
	if cb.OnStatus != nil {
		cb.OnStatus(s)
	}
}

// Start runs one translation job to a terminal status. It is synchronous;
// callers wanting a background run launch it in their own goroutine.
//
// The returned error is non-nil only for run-fatal infrastructure
// failures (unreadable input, unwritable output or metadata). Per-chunk
// translation failures never fail the run; they are recorded in the
// counters and as placeholder output slots.
func (r *Runner) Start(ctx context.Context, inputPath, outputPath string, cb Callbacks) error {
	r.stateMu.Lock()
	if r.status == StatusPreparing || r.status == StatusRunning {
		r.stateMu.Unlock()
		r.log.Warn("Start rejected, a run is already active")
		return ErrAlreadyRunning
	}
	r.status = StatusPreparing
	r.stopRequested = false
	r.stateMu.Unlock()

	r.bookMu.Lock()
	r.counters = counters{}
	r.lastError = ""
	r.bookMu.Unlock()

	if cb.OnStatus != nil {
		cb.OnStatus(StatusPreparing)
	}

	terminal, err := r.run(ctx, inputPath, outputPath, cb)
	r.setStatus(terminal, cb)
	return err
}

// run prepares, executes, and finalizes one job.
func (r *Runner) run(ctx context.Context, inputPath, outputPath string, cb Callbacks) (Status, error) {
	jobID := uuid.NewString()
	log := r.log.With(zap.String("job_id", jobID))
	start := time.Now()

	store := progress.NewStore(outputPath, log)
	fp := progress.Fingerprint(r.cfg.Fingerprint)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return StatusError, fmt.Errorf("read input: %w", err)
	}
	text := string(data)

	if strings.TrimSpace(text) == "" {
		rec := progress.NewRecord(fp, 0)
		rec.Status = StatusCompleted.String()
		if err := store.Save(rec); err != nil {
			return StatusError, fmt.Errorf("persist progress: %w", err)
		}
		if err := writeFileAtomic(outputPath, nil); err != nil {
			return StatusError, fmt.Errorf("write output: %w", err)
		}
		log.Info("Input empty, nothing to translate")
		return StatusCompleted, nil
	}

	chunks := chunker.Split(text, r.cfg.MaxChars)
	total := len(chunks)

	rec := store.Load()
	resuming := rec.Matches(fp, total)
	if !resuming {
		if !rec.Empty() {
			log.Info("Prior progress incompatible, restarting",
				zap.Int("prior_chunks", rec.TotalChunks),
				zap.Int("total_chunks", total))
		}
		rec = progress.NewRecord(fp, total)
		// A full restart rebuilds the final output from nothing.
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return StatusError, fmt.Errorf("truncate output: %w", err)
		}
	}

	done := rec.DoneIndexes()
	outstanding := make([]chunker.Chunk, 0, total-len(done))
	for _, c := range chunks {
		if !done[c.Index] {
			outstanding = append(outstanding, c)
		}
	}

	// Seed counters with prior completions so snapshots report the whole
	// job, not just this run's delta.
	r.bookMu.Lock()
	r.counters = counters{processed: len(done), successful: len(done)}
	r.bookMu.Unlock()

	scratchPath := outputPath + ScratchSuffix
	writer, err := output.NewFileWriter(scratchPath, jobID, r.cfg.ProviderName)
	if err != nil {
		return StatusError, fmt.Errorf("create scratch output: %w", err)
	}

	rec.Status = StatusRunning.String()
	if err := store.Save(rec); err != nil {
		_ = writer.Close()
		_ = os.Remove(scratchPath)
		return StatusError, fmt.Errorf("persist progress: %w", err)
	}

	r.setStatus(StatusRunning, cb)
	log.Info("Run started",
		zap.Int("total_chunks", total),
		zap.Int("outstanding", len(outstanding)),
		zap.Bool("resuming", resuming),
		zap.Int("workers", r.cfg.MaxWorkers))

	fatal := r.runPool(ctx, outstanding, rec, store, writer, cb)

	return r.finalize(finalizeEnv{
		log:         log,
		store:       store,
		rec:         rec,
		writer:      writer,
		scratchPath: scratchPath,
		outputPath:  outputPath,
		fingerprint: fp,
		total:       total,
		start:       start,
		fatal:       fatal,
		cb:          cb,
	})
}

// runPool schedules outstanding chunks onto the bounded worker pool.
// The returned error, if any, is the first run-fatal failure observed.
func (r *Runner) runPool(ctx context.Context, outstanding []chunker.Chunk, rec *progress.Record, store *progress.Store, writer output.Writer, cb Callbacks) error {
	workCh := make(chan chunker.Chunk)
	fatalCh := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range workCh {
				// Cooperative stop: queued tasks exit before consuming
				// provider quota or emitting output.
				if r.stopping() || ctx.Err() != nil {
					continue
				}
				if err := r.processChunk(ctx, c, rec, store, writer, cb); err != nil {
					select {
					case fatalCh <- err:
					default:
					}
				}
			}
		}()
	}

submit:
	for _, c := range outstanding {
		if r.stopping() {
			break
		}
		select {
		case workCh <- c:
		case <-ctx.Done():
			break submit
		}
	}
	close(workCh)
	wg.Wait()

	select {
	case err := <-fatalCh:
		return err
	default:
		return nil
	}
}

// processChunk translates one chunk and reports its outcome through the
// single synchronized update path. The returned error, if any, is
// run-fatal (scratch or metadata unwritable).
func (r *Runner) processChunk(ctx context.Context, c chunker.Chunk, rec *progress.Record, store *progress.Store, writer output.Writer, cb Callbacks) error {
	text, terr := r.engine.Translate(ctx, c.Text, r.cfg.Policy)
	if ctx.Err() != nil {
		// Hard cancellation: record nothing for this chunk.
		return nil
	}

	chunkRec := output.ChunkRecord{Index: c.Index}
	if terr != nil {
		chunkRec.Text = fmt.Sprintf("[translation failed: %v]", terr)
		chunkRec.Outcome = output.OutcomeFailed
		chunkRec.Error = terr.Error()
		if werr := writer.WriteRunError(ctx, output.ErrorRecord{
			Code:    errCode(terr),
			Message: terr.Error(),
			Chunk:   c.Index,
		}); werr != nil {
			return fmt.Errorf("write scratch error record: %w", werr)
		}
	} else {
		chunkRec.Text = text
		chunkRec.Outcome = output.OutcomeSuccess
	}

	if werr := writer.WriteChunk(ctx, chunkRec); werr != nil {
		return fmt.Errorf("write scratch result: %w", werr)
	}

	r.bookMu.Lock()
	r.counters.processed++
	if terr != nil {
		r.counters.failed++
		r.lastError = terr.Error()
	} else {
		r.counters.successful++
		rec.TranslatedChunks[c.Index] = text
	}
	snapshot := Progress{
		Total:        rec.TotalChunks,
		Processed:    r.counters.processed,
		Successful:   r.counters.successful,
		Failed:       r.counters.failed,
		CurrentChunk: c.Index,
		Status:       StatusRunning,
		Message:      fmt.Sprintf("translated %d/%d chunks", r.counters.processed, rec.TotalChunks),
		LastError:    r.lastError,
	}
	saveErr := store.Save(rec)
	r.bookMu.Unlock()

	if werr := writer.WriteProgress(ctx, output.ProgressRecord{
		Total:        snapshot.Total,
		Processed:    snapshot.Processed,
		Successful:   snapshot.Successful,
		Failed:       snapshot.Failed,
		CurrentChunk: snapshot.CurrentChunk,
		Status:       snapshot.Status.String(),
	}); werr != nil {
		return fmt.Errorf("write scratch progress: %w", werr)
	}

	if cb.OnProgress != nil {
		cb.OnProgress(snapshot)
	}
	if saveErr != nil {
		return fmt.Errorf("persist progress: %w", saveErr)
	}
	return nil
}

// errCode maps a chunk failure to its scratch error record code.
func errCode(err error) string {
	switch {
	case provider.IsContentSafety(err):
		return output.ErrCodeContentSafety
	case provider.IsRateLimited(err):
		return output.ErrCodeRateLimited
	case provider.IsInvalidRequest(err):
		return output.ErrCodeInvalidRequest
	case provider.IsAuthExhausted(err):
		return output.ErrCodeAuthExhausted
	case provider.IsTransient(err):
		return output.ErrCodeTransient
	default:
		return output.ErrCodeInternal
	}
}

// writeFileAtomic writes data to path via a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".gloss-out-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
