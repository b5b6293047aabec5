// Package translator wraps a translation provider with the content-safety
// recursive retry policy applied to each chunk.
//
// Content-safety rejections are frequently triggered by a small offending
// substring. Splitting the chunk isolates that substring while the
// surrounding safe text still gets translated, instead of failing the
// whole chunk. All other provider failures propagate unchanged; their
// retry/backoff is the provider's own concern.
package translator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/glosskit/gloss/pkg/chunker"
	"github.com/glosskit/gloss/pkg/provider"
)

// Policy bounds the recursive split strategy.
type Policy struct {
	// MaxSplitAttempts is the maximum recursion depth for safety splits.
	MaxSplitAttempts int

	// MinChunkSize is the smallest piece worth splitting further, in
	// bytes. Pieces at or below it that are still rejected become
	// placeholders.
	MinChunkSize int
}

// Default policy bounds, matching the pipeline defaults.
const (
	DefaultMaxSplitAttempts = 3
	DefaultMinChunkSize     = 100
)

// withDefaults fills unset policy fields.
func (p Policy) withDefaults() Policy {
	if p.MaxSplitAttempts <= 0 {
		p.MaxSplitAttempts = DefaultMaxSplitAttempts
	}
	if p.MinChunkSize <= 0 {
		p.MinChunkSize = DefaultMinChunkSize
	}
	return p
}

// Config holds the per-job translation settings the engine renders into
// each provider call.
type Config struct {
	// PromptTemplate is the prompt with a {{slot}} placeholder. Empty
	// uses the default template.
	PromptTemplate string

	// SourceLang and TargetLang fill the template's language slots.
	SourceLang string
	TargetLang string

	// Model overrides the provider's configured model when non-empty.
	Model string

	// Temperature and TopP are passed through to the provider.
	Temperature float32
	TopP        float32
}

// Engine translates single chunks with the safety-split policy.
type Engine struct {
	provider provider.Translator
	cfg      Config
	log      *zap.Logger
}

// NewEngine creates an engine over the given provider.
func NewEngine(p provider.Translator, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{provider: p, cfg: cfg, log: log}
}

// Translate translates one chunk's text.
//
// On success the translated text is returned trimmed. A content-safety
// rejection triggers the recursive split strategy, which always resolves
// to a string (translated pieces joined in order, with placeholders for
// unresolvable portions) rather than an error. Any other provider error
// propagates as a categorized failure for this chunk.
func (e *Engine) Translate(ctx context.Context, text string, pol Policy) (string, error) {
	pol = pol.withDefaults()

	out, err := e.call(ctx, text)
	if err == nil {
		return out, nil
	}
	if !provider.IsContentSafety(err) {
		return "", err
	}

	e.log.Warn("Chunk rejected by safety filter, splitting",
		zap.Int("chunk_bytes", len(text)),
		zap.Int("max_attempts", pol.MaxSplitAttempts))
	return e.splitAndTranslate(ctx, text, pol, 1)
}

// splitAndTranslate handles one level of the recursive split strategy.
// It returns an error only for context cancellation; every provider
// outcome resolves to text or a placeholder.
func (e *Engine) splitAndTranslate(ctx context.Context, text string, pol Policy, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if depth > pol.MaxSplitAttempts {
		return exhaustedPlaceholder(text), nil
	}
	if len(text) <= pol.MinChunkSize {
		return blockedPlaceholder(text), nil
	}

	parts := chunker.SplitRecursively(text, len(text)/2, pol.MinChunkSize, 1)
	if len(parts) <= 1 {
		parts = chunker.SplitBySentences(text, 1)
	}
	if len(parts) <= 1 {
		// Cannot split further. Terminal condition, not an error.
		return blockedPlaceholder(text), nil
	}

	e.log.Debug("Translating split pieces",
		zap.Int("depth", depth), zap.Int("pieces", len(parts)))

	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		out, err := e.call(ctx, part.Text)
		switch {
		case err == nil:
			pieces = append(pieces, out)
		case provider.IsContentSafety(err):
			sub, serr := e.splitAndTranslate(ctx, part.Text, pol, depth+1)
			if serr != nil {
				return "", serr
			}
			pieces = append(pieces, sub)
		default:
			if cerr := ctx.Err(); cerr != nil {
				return "", cerr
			}
			// Inside a split, a non-safety failure only poisons this
			// piece; safe siblings keep their translations.
			e.log.Warn("Split piece failed", zap.Int("depth", depth), zap.Error(err))
			pieces = append(pieces, failedPlaceholder(err))
		}
	}
	return strings.Join(pieces, " "), nil
}

// call renders the prompt and invokes the provider once.
func (e *Engine) call(ctx context.Context, text string) (string, error) {
	prompt := provider.RenderPrompt(e.cfg.PromptTemplate, text, e.cfg.SourceLang, e.cfg.TargetLang)
	out, err := e.provider.Translate(ctx, provider.Request{
		Prompt:      prompt,
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		TopP:        e.cfg.TopP,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// previewLen bounds the untranslatable-text preview in placeholders.
const previewLen = 30

func preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= previewLen {
		return string(runes)
	}
	return string(runes[:previewLen]) + "..."
}

func blockedPlaceholder(text string) string {
	return fmt.Sprintf("[translation blocked: %q]", preview(text))
}

func exhaustedPlaceholder(text string) string {
	return fmt.Sprintf("[translation failed after maximum split attempts: %q]", preview(text))
}

func failedPlaceholder(err error) string {
	return fmt.Sprintf("[translation failed: %v]", err)
}
