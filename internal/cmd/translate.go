package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glosskit/gloss/internal/config"
	"github.com/glosskit/gloss/internal/observability"
	"github.com/glosskit/gloss/pkg/docstore"
	"github.com/glosskit/gloss/pkg/job"
	"github.com/glosskit/gloss/pkg/manifest"
	"github.com/glosskit/gloss/pkg/progress"
	"github.com/glosskit/gloss/pkg/provider"
	"github.com/glosskit/gloss/pkg/provider/gemini"
	"github.com/glosskit/gloss/pkg/provider/openai"
	"github.com/glosskit/gloss/pkg/translator"
)

var (
	translateInput      string
	translateOutput     string
	translateManifest   string
	translateProvider   string
	translateModel      string
	translateSourceLang string
	translateTargetLang string
	translatePromptFile string
	translateMaxChars   int
	translateWorkers    int
	translateRPM        int
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a document, resuming prior progress",
	Long: `Translate a document through the configured LLM provider.

The input is split into chunks at paragraph and sentence boundaries and
the chunks are translated concurrently. A progress record next to the
output file is updated after every chunk; re-running the same command
with the same settings skips chunks that already succeeded and retries
the ones that failed.

Input and output may be local paths or s3:// URIs. With --manifest, a batch
manifest selects multiple documents by glob pattern and translates them
in sequence.

Press Ctrl-C to stop cooperatively: in-flight chunks finish, their
results are saved, and the run can be resumed later.`,
	Example: `  gloss translate -i book.txt -o book.de.txt --target-lang de
  gloss translate -i s3://docs/report.txt -o s3://docs/report.fr.txt --target-lang fr
  gloss translate --manifest batch.yaml`,
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateInput, "input", "i", "", "Input document (local path or s3:// URI)")
	translateCmd.Flags().StringVarP(&translateOutput, "output", "o", "", "Output document (local path or s3:// URI)")
	translateCmd.Flags().StringVarP(&translateManifest, "manifest", "m", "", "Batch manifest file (YAML or JSON)")
	translateCmd.Flags().StringVar(&translateProvider, "provider", "", "Translation provider (gemini|openai)")
	translateCmd.Flags().StringVar(&translateModel, "model", "", "Model name (provider default when empty)")
	translateCmd.Flags().StringVar(&translateSourceLang, "source-lang", "", "Source language (auto-detected when empty)")
	translateCmd.Flags().StringVarP(&translateTargetLang, "target-lang", "t", "", "Target language")
	translateCmd.Flags().StringVar(&translatePromptFile, "prompt-file", "", "File containing a prompt template with a {{slot}} placeholder")
	translateCmd.Flags().IntVar(&translateMaxChars, "max-chars", 0, "Maximum chunk size in characters")
	translateCmd.Flags().IntVar(&translateWorkers, "workers", 0, "Concurrent translation workers")
	translateCmd.Flags().IntVar(&translateRPM, "rpm", 0, "Provider requests per minute (0 disables limiting)")
}

func runTranslate(cmd *cobra.Command, _ []string) error {
	log := observability.CLILogger

	if translateManifest == "" && (translateInput == "" || translateOutput == "") {
		return exitError(foundry.ExitInvalidArgument,
			"either --manifest or both --input and --output are required", nil)
	}
	if translateManifest != "" && (translateInput != "" || translateOutput != "") {
		return exitError(foundry.ExitInvalidArgument,
			"--manifest cannot be combined with --input/--output", nil)
	}

	overrides, err := translateOverrides(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "failed to load configuration", err)
	}

	if translateManifest != "" {
		return runBatch(cmd.Context(), cfg, translateManifest, log)
	}

	if cfg.Translation.TargetLang == "" {
		return exitError(foundry.ExitInvalidArgument,
			"target language is required (--target-lang or GLOSS_TARGET_LANG)", nil)
	}

	prov, err := buildProvider(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	engine := translator.NewEngine(prov, translator.Config{
		PromptTemplate: cfg.Translation.PromptTemplate,
		SourceLang:     cfg.Translation.SourceLang,
		TargetLang:     cfg.Translation.TargetLang,
		Model:          cfg.Translation.Model,
		Temperature:    float32(cfg.Translation.Temperature),
		TopP:           float32(cfg.Translation.TopP),
	}, log)

	return runOne(cmd.Context(), cfg, engine, prov.Name(), translateInput, translateOutput, log)
}

// translateOverrides maps the flags the user actually set onto config
// keys, so flags outrank environment and file values.
func translateOverrides(cmd *cobra.Command) (map[string]any, error) {
	o := map[string]any{}
	set := func(changed bool, key string, val any) {
		if changed {
			o[key] = val
		}
	}
	f := cmd.Flags()
	set(f.Changed("provider"), "translation.provider", translateProvider)
	set(f.Changed("model"), "translation.model", translateModel)
	set(f.Changed("source-lang"), "translation.source_lang", translateSourceLang)
	set(f.Changed("target-lang"), "translation.target_lang", translateTargetLang)
	set(f.Changed("max-chars"), "pipeline.max_chars", translateMaxChars)
	set(f.Changed("workers"), "pipeline.max_workers", translateWorkers)
	set(f.Changed("rpm"), "pipeline.requests_per_minute", translateRPM)

	if f.Changed("prompt-file") {
		data, err := os.ReadFile(translatePromptFile)
		if err != nil {
			return nil, exitError(foundry.ExitFileReadError, "failed to read prompt template", err)
		}
		o["translation.prompt_template"] = string(data)
	}
	return o, nil
}

// buildProvider constructs the configured provider wrapped with rate
// limiting and the circuit breaker.
func buildProvider(ctx context.Context, cfg *config.Config) (provider.Translator, error) {
	var (
		p   provider.Translator
		err error
	)
	switch cfg.Translation.Provider {
	case provider.TypeGemini.String():
		p, err = gemini.New(ctx, gemini.Config{
			APIKey: cfg.Translation.GeminiAPIKey,
			Model:  cfg.Translation.Model,
		})
	case provider.TypeOpenAI.String():
		p, err = openai.New(openai.Config{
			APIKey:  cfg.Translation.OpenAIAPIKey,
			BaseURL: cfg.Translation.OpenAIBaseURL,
			Model:   cfg.Translation.Model,
		})
	default:
		return nil, exitError(foundry.ExitInvalidArgument,
			fmt.Sprintf("unsupported provider %q (want gemini or openai)", cfg.Translation.Provider), nil)
	}
	if err != nil {
		return nil, exitError(foundry.ExitInvalidArgument, "failed to initialize provider", err)
	}

	if cfg.Pipeline.RequestsPerMinute > 0 {
		p = provider.WithRateLimit(p, cfg.Pipeline.RequestsPerMinute)
	}
	return provider.WithBreaker(p), nil
}

// runOne translates a single document to a terminal status.
func runOne(ctx context.Context, cfg *config.Config, engine job.ChunkTranslator, providerName, input, output string, log *zap.Logger) error {
	localIn, localOut, publish, err := stagePaths(ctx, cfg, input, output, log)
	if err != nil {
		return err
	}

	runner := job.New(job.Config{
		MaxChars:   cfg.Pipeline.MaxChars,
		MaxWorkers: cfg.Pipeline.MaxWorkers,
		Policy: translator.Policy{
			MaxSplitAttempts: cfg.Pipeline.MaxSplitAttempts,
			MinChunkSize:     cfg.Pipeline.MinChunkSize,
		},
		ProviderName: providerName,
		Fingerprint: progress.FingerprintConfig{
			Provider:       providerName,
			Model:          cfg.Translation.Model,
			PromptTemplate: cfg.Translation.PromptTemplate,
			SourceLang:     cfg.Translation.SourceLang,
			TargetLang:     cfg.Translation.TargetLang,
			Temperature:    float32(cfg.Translation.Temperature),
			TopP:           float32(cfg.Translation.TopP),
			MaxChars:       cfg.Pipeline.MaxChars,

			MaxSplitAttempts: cfg.Pipeline.MaxSplitAttempts,
			MinChunkSize:     cfg.Pipeline.MinChunkSize,
		},
	}, engine, log)

	// A signal cancels ctx, which must translate into a cooperative
	// stop rather than aborting in-flight provider calls. The run
	// itself gets a detached context.
	runCtx := context.WithoutCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			runner.RequestStop()
		case <-watchDone:
		}
	}()

	err = runner.Start(runCtx, localIn, localOut, job.Callbacks{
		OnProgress: func(p job.Progress) {
			log.Info("Progress",
				zap.Int("processed", p.Processed),
				zap.Int("total", p.Total),
				zap.Int("failed", p.Failed),
				zap.String("message", p.Message))
		},
	})
	close(watchDone)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitError(foundry.ExitFileNotFound, "input document not found", err)
		}
		return exitError(foundry.ExitFileWriteError, "translation run failed", err)
	}

	switch runner.Status() {
	case job.StatusStopped:
		log.Info("Run stopped, progress saved", zap.String("output", output))
		return exitError(foundry.ExitSignalInt,
			"translation stopped before completion, re-run to resume", nil)
	case job.StatusCompletedWithErrors:
		log.Warn("Run completed with failed chunks, re-run to retry them",
			zap.String("output", output))
	}

	if publish != nil {
		if err := publish(); err != nil {
			return err
		}
	}
	stdout("%s\n", output)
	return nil
}

// stagePaths resolves s3:// URIs to local working paths. It returns the
// local input and output paths and an optional publish function that
// uploads the finished output.
func stagePaths(ctx context.Context, cfg *config.Config, input, output string, log *zap.Logger) (string, string, func() error, error) {
	localIn, localOut := input, output
	var publish func() error

	if !docstore.IsS3URI(input) && !docstore.IsS3URI(output) {
		return localIn, localOut, nil, nil
	}

	store, err := docstore.NewS3Store(ctx, docstore.S3Config{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		Profile:         cfg.S3.Profile,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretKey,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return "", "", nil, exitError(foundry.ExitExternalServiceUnavailable, "failed to initialize s3 client", err)
	}

	if docstore.IsS3URI(input) {
		localIn, err = fetchToTemp(ctx, store, input)
		if err != nil {
			if docstore.IsNotFound(err) {
				return "", "", nil, exitError(foundry.ExitFileNotFound, "input document not found", err)
			}
			return "", "", nil, exitError(foundry.ExitExternalServiceUnavailable, "failed to fetch input document", err)
		}
		log.Debug("Staged input locally", zap.String("uri", input), zap.String("path", localIn))
	}

	if docstore.IsS3URI(output) {
		// The local output stays in the working directory under the
		// object's base name, so the progress record next to it
		// survives across invocations and the run stays resumable.
		_, key, perr := docstore.ParseS3URI(output)
		if perr != nil {
			return "", "", nil, exitError(foundry.ExitInvalidArgument, "invalid output URI", perr)
		}
		localOut = filepath.Base(key)
		uri := output
		publish = func() error {
			f, err := os.Open(localOut)
			if err != nil {
				return exitError(foundry.ExitFileReadError, "failed to open finished output", err)
			}
			defer f.Close()
			if err := store.Put(ctx, uri, f); err != nil {
				return exitError(foundry.ExitExternalServiceUnavailable, "failed to upload output document", err)
			}
			log.Info("Uploaded output", zap.String("uri", uri))
			return nil
		}
	}

	return localIn, localOut, publish, nil
}

// fetchToTemp downloads an s3 object into a temp file and returns its
// path.
func fetchToTemp(ctx context.Context, store docstore.Store, uri string) (string, error) {
	body, _, err := store.Fetch(ctx, uri)
	if err != nil {
		return "", err
	}
	defer body.Close()

	f, err := os.CreateTemp("", "gloss-input-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// runBatch translates every document a manifest selects, in sequence.
// Documents are independent; one failed document does not stop the rest.
func runBatch(ctx context.Context, cfg *config.Config, manifestPath string, log *zap.Logger) error {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		if errors.Is(err, manifest.ErrValidationFailed) {
			return exitError(foundry.ExitInvalidArgument, "invalid batch manifest", err)
		}
		return exitError(foundry.ExitFileReadError, "failed to load batch manifest", err)
	}

	tasks, err := m.Expand(filepath.Dir(manifestPath))
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "failed to expand document patterns", err)
	}
	if len(tasks) == 0 {
		return exitError(foundry.ExitFileNotFound, "manifest matched no documents", nil)
	}

	batchCfg := applyManifest(cfg, m)
	prov, err := buildProvider(ctx, batchCfg)
	if err != nil {
		return err
	}
	engine := translator.NewEngine(prov, translator.Config{
		PromptTemplate: batchCfg.Translation.PromptTemplate,
		SourceLang:     batchCfg.Translation.SourceLang,
		TargetLang:     batchCfg.Translation.TargetLang,
		Model:          batchCfg.Translation.Model,
		Temperature:    float32(batchCfg.Translation.Temperature),
		TopP:           float32(batchCfg.Translation.TopP),
	}, log)

	log.Info("Starting batch run",
		zap.Int("documents", len(tasks)),
		zap.String("provider", batchCfg.Translation.Provider),
		zap.String("target_lang", batchCfg.Translation.TargetLang))

	var failed []string
	for _, task := range tasks {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt,
				"batch stopped before completion, re-run to resume", nil)
		}
		log.Info("Translating document",
			zap.String("input", task.Input), zap.String("output", task.Output))
		if err := runOne(ctx, batchCfg, engine, prov.Name(), task.Input, task.Output, log); err != nil {
			var ce *cliError
			if errors.As(err, &ce) && ce.code == foundry.ExitSignalInt {
				return err
			}
			log.Error("Document failed", zap.String("input", task.Input), zap.Error(err))
			failed = append(failed, task.Input)
		}
	}

	if len(failed) > 0 {
		return exitError(foundry.ExitExternalServiceUnavailable,
			fmt.Sprintf("%d of %d documents failed: %s",
				len(failed), len(tasks), strings.Join(failed, ", ")), nil)
	}
	log.Info("Batch completed", zap.Int("documents", len(tasks)))
	return nil
}

// applyManifest overlays manifest settings onto the runtime config.
// Provider API keys stay with the environment; everything else the
// manifest says wins.
func applyManifest(cfg *config.Config, m *manifest.Manifest) *config.Config {
	out := *cfg
	out.Translation.Provider = m.Translation.Provider
	out.Translation.Model = m.Translation.Model
	out.Translation.SourceLang = m.Translation.SourceLang
	out.Translation.TargetLang = m.Translation.TargetLang
	if m.Translation.PromptTemplate != "" {
		out.Translation.PromptTemplate = m.Translation.PromptTemplate
	}
	if m.Translation.Temperature != nil {
		out.Translation.Temperature = *m.Translation.Temperature
	}
	if m.Translation.TopP != nil {
		out.Translation.TopP = *m.Translation.TopP
	}
	out.Pipeline.MaxChars = m.Pipeline.MaxChars
	out.Pipeline.MaxWorkers = m.Pipeline.MaxWorkers
	out.Pipeline.MaxSplitAttempts = m.Pipeline.MaxSplitAttempts
	out.Pipeline.MinChunkSize = m.Pipeline.MinChunkSize
	out.Pipeline.RequestsPerMinute = m.Pipeline.RequestsPerMinute
	return &out
}
