package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	name  string
	calls int
	fn    func(req Request) (string, error)
}

func (f *fakeTranslator) Translate(_ context.Context, req Request) (string, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(req)
	}
	return "translated: " + req.Prompt, nil
}

func (f *fakeTranslator) Name() string {
	if f.name != "" {
		return f.name
	}
	return "fake"
}

func TestErrorWrapping(t *testing.T) {
	wrapped := &Error{
		Op:       "Translate",
		Provider: TypeGemini,
		Model:    "gemini-2.0-flash",
		Err:      ErrContentSafety,
	}

	assert.True(t, IsContentSafety(wrapped))
	assert.False(t, IsRateLimited(wrapped))
	assert.Contains(t, wrapped.Error(), "gemini")
	assert.Contains(t, wrapped.Error(), "gemini-2.0-flash")

	double := fmt.Errorf("chunk 3: %w", wrapped)
	assert.True(t, IsContentSafety(double))
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
		pred     func(error) bool
	}{
		{"content safety", ErrContentSafety, IsContentSafety},
		{"rate limited", ErrRateLimited, IsRateLimited},
		{"invalid request", ErrInvalidRequest, IsInvalidRequest},
		{"auth exhausted", ErrAuthExhausted, IsAuthExhausted},
		{"transient", ErrTransient, IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Op: "Translate", Provider: TypeOpenAI, Err: tt.sentinel}
			assert.True(t, tt.pred(err))
			assert.False(t, tt.pred(errors.New("unrelated")))
		})
	}
}

func TestRenderPrompt(t *testing.T) {
	t.Run("substitutes slot and languages", func(t *testing.T) {
		out := RenderPrompt("translate from {{source_lang}} to {{target_lang}}: {{slot}}", "hello", "en", "ko")
		assert.Equal(t, "translate from en to ko: hello", out)
	})

	t.Run("empty template falls back to default", func(t *testing.T) {
		out := RenderPrompt("", "chunk text", "en", "ja")
		assert.Contains(t, out, "chunk text")
		assert.Contains(t, out, "ja")
		assert.NotContains(t, out, PromptSlot)
	})

	t.Run("unknown placeholders are preserved", func(t *testing.T) {
		out := RenderPrompt("{{lorebook_context}} {{slot}}", "x", "", "")
		assert.True(t, strings.HasPrefix(out, "{{lorebook_context}}"))
	})
}

func TestWithRateLimit(t *testing.T) {
	t.Run("non-positive rate is a passthrough", func(t *testing.T) {
		inner := &fakeTranslator{}
		assert.Equal(t, Translator(inner), WithRateLimit(inner, 0))
	})

	t.Run("delegates and preserves name", func(t *testing.T) {
		inner := &fakeTranslator{name: "gemini"}
		limited := WithRateLimit(inner, 600)
		assert.Equal(t, "gemini", limited.Name())

		out, err := limited.Translate(context.Background(), Request{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "translated: hi", out)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("cancelled context surfaces as provider error", func(t *testing.T) {
		inner := &fakeTranslator{}
		limited := WithRateLimit(inner, 1)

		ctx, cancel := context.WithCancel(context.Background())
		// Consume the burst token, then cancel so the next wait fails.
		_, err := limited.Translate(ctx, Request{Prompt: "first"})
		require.NoError(t, err)
		cancel()

		_, err = limited.Translate(ctx, Request{Prompt: "second"})
		require.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})
}

func TestWithBreaker(t *testing.T) {
	t.Run("passes successes through", func(t *testing.T) {
		inner := &fakeTranslator{}
		b := WithBreaker(inner)
		out, err := b.Translate(context.Background(), Request{Prompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "translated: hi", out)
	})

	t.Run("content safety never trips the breaker", func(t *testing.T) {
		inner := &fakeTranslator{fn: func(Request) (string, error) {
			return "", &Error{Op: "Translate", Provider: TypeGemini, Err: ErrContentSafety}
		}}
		b := WithBreaker(inner)
		for i := 0; i < 20; i++ {
			_, err := b.Translate(context.Background(), Request{})
			assert.True(t, IsContentSafety(err))
		}
		assert.Equal(t, 20, inner.calls)
	})

	t.Run("repeated transient failures open the breaker", func(t *testing.T) {
		inner := &fakeTranslator{fn: func(Request) (string, error) {
			return "", &Error{Op: "Translate", Provider: TypeGemini, Err: ErrTransient}
		}}
		b := WithBreaker(inner)

		var lastErr error
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			_, lastErr = b.Translate(context.Background(), Request{})
			if inner.calls >= 5 && IsTransient(lastErr) {
				break
			}
		}
		require.Error(t, lastErr)
		assert.True(t, IsTransient(lastErr))
		// Once open, the underlying provider is no longer called.
		before := inner.calls
		_, err := b.Translate(context.Background(), Request{})
		assert.True(t, IsTransient(err))
		assert.Equal(t, before, inner.calls)
	})
}
