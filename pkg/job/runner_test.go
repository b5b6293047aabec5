package job

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glosskit/gloss/pkg/chunker"
	"github.com/glosskit/gloss/pkg/output"
	"github.com/glosskit/gloss/pkg/progress"
	"github.com/glosskit/gloss/pkg/provider"
	"github.com/glosskit/gloss/pkg/translator"
)

// fakeEngine is a scriptable ChunkTranslator. The default behavior
// uppercases the chunk text.
type fakeEngine struct {
	mu    sync.Mutex
	calls []string
	fn    func(text string) (string, error)
}

func (f *fakeEngine) Translate(_ context.Context, text string, _ translator.Policy) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(text)
	}
	return strings.ToUpper(text), nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fourChunkInput builds a 3500-char document that splits into exactly
// four chunks at maxChars 1000, each dominated by a distinct letter.
func fourChunkInput() string {
	return strings.Repeat("a", 999) + " " +
		strings.Repeat("b", 999) + " " +
		strings.Repeat("c", 999) + " " +
		strings.Repeat("d", 500)
}

func testConfig(maxChars, maxWorkers int) Config {
	return Config{
		MaxChars:     maxChars,
		MaxWorkers:   maxWorkers,
		ProviderName: "fake",
		Fingerprint: progress.FingerprintConfig{
			Provider:   "fake",
			Model:      "test-model",
			TargetLang: "de",
			MaxChars:   maxChars,
		},
	}
}

func writeInput(t *testing.T, dir, content string) (inputPath, outputPath string) {
	t.Helper()
	inputPath = filepath.Join(dir, "input.txt")
	outputPath = filepath.Join(dir, "output.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte(content), 0o644))
	return inputPath, outputPath
}

func TestRunnerCompletesSimpleJob(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, "hello world")

	eng := &fakeEngine{}
	r := New(testConfig(6000, 2), eng, nil)

	var statuses []Status
	err := r.Start(context.Background(), in, out, Callbacks{
		OnStatus: func(s Status) { statuses = append(statuses, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status())
	assert.Equal(t, []Status{StatusPreparing, StatusRunning, StatusCompleted}, statuses)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD", string(data))

	rec := progress.NewStore(out, nil).Load()
	assert.Equal(t, StatusCompleted.String(), rec.Status)
	assert.Equal(t, 1, rec.TotalChunks)
	assert.Equal(t, "HELLO WORLD", rec.TranslatedChunks[0])

	_, err = os.Stat(out + ScratchSuffix)
	assert.True(t, os.IsNotExist(err), "scratch file must be removed")
}

func TestRunnerFourChunkScenarioWithSafetySplit(t *testing.T) {
	dir := t.TempDir()
	text := fourChunkInput()
	require.Len(t, chunker.Split(text, 1000), 4)
	in, out := writeInput(t, dir, text)

	// Real engine over a scripted provider: the chunk of c's is rejected
	// once by the safety filter, then both halves translate fine.
	var mu sync.Mutex
	calls := 0
	rejected := false
	p := &scriptedJobProvider{fn: func(prompt string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if strings.Contains(prompt, "c") && !rejected {
			rejected = true
			return "", &provider.Error{Op: "Translate", Provider: "scripted", Err: provider.ErrContentSafety}
		}
		return strings.ToUpper(prompt), nil
	}}
	eng := translator.NewEngine(p, translator.Config{PromptTemplate: "{{slot}}"}, nil)

	r := New(testConfig(1000, 2), eng, nil)
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r.Status())

	mu.Lock()
	assert.Equal(t, 6, calls, "four chunks, one rejection, two halves")
	mu.Unlock()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	got := string(data)
	parts := strings.Split(got, "\n\n")
	require.Len(t, parts, 4)
	assert.Equal(t, strings.Repeat("A", 999), parts[0])
	assert.Equal(t, strings.Repeat("B", 999), parts[1])
	assert.Equal(t, strings.Count(parts[2], "C"), 999, "rejected chunk still fully translated via halves")
	assert.Equal(t, strings.Repeat("D", 500), parts[3])
	assert.NotContains(t, got, "[translation")
}

type scriptedJobProvider struct {
	fn func(prompt string) (string, error)
}

func (s *scriptedJobProvider) Translate(_ context.Context, req provider.Request) (string, error) {
	return s.fn(req.Prompt)
}

func (s *scriptedJobProvider) Name() string { return "scripted" }

func TestRunnerResumeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	eng1 := &fakeEngine{}
	r1 := New(testConfig(1000, 2), eng1, nil)
	require.NoError(t, r1.Start(context.Background(), in, out, Callbacks{}))
	require.Equal(t, StatusCompleted, r1.Status())
	assert.Equal(t, 4, eng1.callCount())

	first, err := os.ReadFile(out)
	require.NoError(t, err)

	// Same config, fresh process: nothing left to do, output unchanged.
	eng2 := &fakeEngine{}
	r2 := New(testConfig(1000, 2), eng2, nil)
	require.NoError(t, r2.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r2.Status())
	assert.Zero(t, eng2.callCount(), "resume of a completed job must not call the provider")

	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunnerResumeRetriesFailedChunks(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	failB := &fakeEngine{}
	failB.fn = func(text string) (string, error) {
		if strings.Contains(text, "b") {
			return "", &provider.Error{Op: "Translate", Provider: "fake", Err: provider.ErrTransient}
		}
		return strings.ToUpper(text), nil
	}
	r1 := New(testConfig(1000, 2), failB, nil)
	require.NoError(t, r1.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompletedWithErrors, r1.Status())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[translation failed:")

	rec := progress.NewStore(out, nil).Load()
	assert.Equal(t, StatusCompletedWithErrors.String(), rec.Status)
	assert.Len(t, rec.TranslatedChunks, 3, "failed chunk must not be recorded as done")

	// Second run retries only the failed chunk.
	eng2 := &fakeEngine{}
	r2 := New(testConfig(1000, 2), eng2, nil)
	require.NoError(t, r2.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r2.Status())
	require.Equal(t, 1, eng2.callCount())
	assert.Contains(t, eng2.calls[0], "b")

	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "[translation failed:")
	assert.Contains(t, string(data), strings.Repeat("B", 999))
}

func TestRunnerFingerprintMismatchRestarts(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	eng1 := &fakeEngine{}
	r1 := New(testConfig(1000, 2), eng1, nil)
	require.NoError(t, r1.Start(context.Background(), in, out, Callbacks{}))
	require.Equal(t, 4, eng1.callCount())

	// A different target language invalidates every prior translation.
	cfg := testConfig(1000, 2)
	cfg.Fingerprint.TargetLang = "fr"
	eng2 := &fakeEngine{}
	r2 := New(cfg, eng2, nil)
	require.NoError(t, r2.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r2.Status())
	assert.Equal(t, 4, eng2.callCount(), "changed settings must retranslate everything")
}

func TestRunnerChunkCountMismatchRestarts(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	eng1 := &fakeEngine{}
	r1 := New(testConfig(1000, 2), eng1, nil)
	require.NoError(t, r1.Start(context.Background(), in, out, Callbacks{}))
	require.Equal(t, 4, eng1.callCount())

	// Same settings, edited input: now two chunks. Prior progress is for
	// a different chunk set and must be discarded wholesale.
	shorter := strings.Repeat("a", 999) + " " + strings.Repeat("b", 500)
	require.NoError(t, os.WriteFile(in, []byte(shorter), 0o644))

	eng2 := &fakeEngine{}
	r2 := New(testConfig(1000, 2), eng2, nil)
	require.NoError(t, r2.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r2.Status())
	assert.Equal(t, 2, eng2.callCount())

	rec := progress.NewStore(out, nil).Load()
	assert.Equal(t, 2, rec.TotalChunks)
}

func TestRunnerCooperativeStop(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	eng := &fakeEngine{}
	r := New(testConfig(1000, 1), eng, nil)
	eng.fn = func(text string) (string, error) {
		if eng.callCount() == 2 {
			r.RequestStop()
		}
		return strings.ToUpper(text), nil
	}

	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusStopped, r.Status())
	assert.Equal(t, 2, eng.callCount(), "queued tasks must not run after a stop request")

	// Completed work survives the stop for a later resume.
	rec := progress.NewStore(out, nil).Load()
	assert.Equal(t, StatusStopped.String(), rec.Status)
	assert.Len(t, rec.TranslatedChunks, 2)
	assert.Contains(t, rec.TranslatedChunks[0], "A")
	assert.Contains(t, rec.TranslatedChunks[1], "B")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), strings.Repeat("A", 999))
	assert.NotContains(t, string(data), "C")

	// Resume picks up the remaining chunks only.
	eng2 := &fakeEngine{}
	r2 := New(testConfig(1000, 1), eng2, nil)
	require.NoError(t, r2.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r2.Status())
	assert.Equal(t, 2, eng2.callCount())

	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, strings.Split(string(data), "\n\n"), 4)
}

func TestRunnerStopWhenIdleIsNoop(t *testing.T) {
	r := New(testConfig(1000, 1), &fakeEngine{}, nil)
	r.RequestStop()
	assert.Equal(t, StatusIdle, r.Status())

	// The cleared flag must not leak into the next run.
	dir := t.TempDir()
	in, out := writeInput(t, dir, "hello")
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r.Status())
}

func TestRunnerEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, "  \n\t ")

	eng := &fakeEngine{}
	r := New(testConfig(1000, 2), eng, nil)
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	assert.Equal(t, StatusCompleted, r.Status())
	assert.Zero(t, eng.callCount())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)

	rec := progress.NewStore(out, nil).Load()
	assert.Equal(t, 0, rec.TotalChunks)
	assert.Equal(t, StatusCompleted.String(), rec.Status)
}

func TestRunnerMissingInputIsFatal(t *testing.T) {
	dir := t.TempDir()
	err := New(testConfig(1000, 2), &fakeEngine{}, nil).
		Start(context.Background(), filepath.Join(dir, "nope.txt"), filepath.Join(dir, "out.txt"), Callbacks{})
	require.Error(t, err)
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, "hello world")

	release := make(chan struct{})
	eng := &fakeEngine{fn: func(text string) (string, error) {
		<-release
		return strings.ToUpper(text), nil
	}}
	r := New(testConfig(6000, 1), eng, nil)

	done := make(chan error, 1)
	go func() {
		done <- r.Start(context.Background(), in, out, Callbacks{})
	}()

	require.Eventually(t, func() bool {
		return r.Status() == StatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	err := r.Start(context.Background(), in, out, Callbacks{})
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusCompleted, r.Status())
}

func TestRunnerOutputOrderIndependentOfCompletionOrder(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	// Earlier chunks finish last; the output must still be in index order.
	eng := &fakeEngine{fn: func(text string) (string, error) {
		switch text[0] {
		case 'a':
			time.Sleep(60 * time.Millisecond)
		case 'b':
			time.Sleep(40 * time.Millisecond)
		case 'c':
			time.Sleep(20 * time.Millisecond)
		}
		return strings.ToUpper(text), nil
	}}
	r := New(testConfig(1000, 4), eng, nil)
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	require.Equal(t, StatusCompleted, r.Status())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	got := string(data)
	assert.Less(t, strings.Index(got, "A"), strings.Index(got, "B"))
	assert.Less(t, strings.Index(got, "B"), strings.Index(got, "C"))
	assert.Less(t, strings.Index(got, "C"), strings.Index(got, "D"))
}

func TestRunnerProgressSnapshotsConsistent(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	var mu sync.Mutex
	var snaps []Progress
	r := New(testConfig(1000, 4), &fakeEngine{}, nil)
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{
		OnProgress: func(p Progress) {
			mu.Lock()
			snaps = append(snaps, p)
			mu.Unlock()
		},
	}))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	for _, p := range snaps {
		assert.Equal(t, p.Processed, p.Successful+p.Failed)
		assert.LessOrEqual(t, p.Processed, p.Total)
		assert.Equal(t, 4, p.Total)
	}
	final := snaps[len(snaps)-1]
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 4, final.Processed)
	assert.Equal(t, 4, final.Successful)
	assert.Zero(t, final.Failed)
}

func TestRunnerScratchCarriesProgressRecords(t *testing.T) {
	dir := t.TempDir()
	in, out := writeInput(t, dir, fourChunkInput())

	// One worker keeps completion order deterministic. The chunk of c's
	// observes the scratch file after the first two chunks finished.
	var midRun []byte
	eng := &fakeEngine{}
	eng.fn = func(text string) (string, error) {
		if strings.Contains(text, "c") {
			data, err := os.ReadFile(out + ScratchSuffix)
			require.NoError(t, err)
			midRun = data
		}
		return strings.ToUpper(text), nil
	}

	r := New(testConfig(1000, 1), eng, nil)
	require.NoError(t, r.Start(context.Background(), in, out, Callbacks{}))
	require.Equal(t, StatusCompleted, r.Status())

	var updates []output.ProgressRecord
	for _, line := range strings.Split(strings.TrimSpace(string(midRun)), "\n") {
		var env output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &env))
		if env.Type != output.TypeProgress {
			continue
		}
		var p output.ProgressRecord
		require.NoError(t, json.Unmarshal(env.Data, &p))
		updates = append(updates, p)
	}

	require.Len(t, updates, 2, "one progress envelope per finished chunk")
	last := updates[1]
	assert.Equal(t, 4, last.Total)
	assert.Equal(t, 2, last.Processed)
	assert.Equal(t, 2, last.Successful)
	assert.Zero(t, last.Failed)
	assert.Equal(t, StatusRunning.String(), last.Status)
}
