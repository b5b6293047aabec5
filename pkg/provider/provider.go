// Package provider defines the translation provider abstraction.
//
// A provider is a stateless request/response capability: given a fully
// rendered prompt, it returns translated text or a categorized error.
// Retry policy for content-safety rejections lives in the chunk
// translator; rate limiting and failure isolation are applied by
// wrapping a Translator (see WithRateLimit and WithBreaker).
package provider

import "context"

// Translator is the capability consumed by the translation pipeline.
//
// Implementations must be safe for concurrent use.
type Translator interface {
	// Translate sends the rendered prompt and returns the translated text.
	// Failures are categorized via the sentinel errors in this package.
	Translate(ctx context.Context, req Request) (string, error)

	// Name identifies the provider (e.g. "gemini", "openai").
	Name() string
}

// Request carries one translation call's prompt and model parameters.
type Request struct {
	// Prompt is the fully rendered prompt text.
	Prompt string

	// Model overrides the provider's configured model when non-empty.
	Model string

	// Temperature controls sampling randomness.
	Temperature float32

	// TopP controls nucleus sampling.
	TopP float32
}

// Type identifies a translation provider implementation.
type Type string

const (
	// TypeGemini represents the Google Gemini API.
	TypeGemini Type = "gemini"

	// TypeOpenAI represents OpenAI-compatible chat completion APIs.
	TypeOpenAI Type = "openai"
)

// String returns the string representation of the provider type.
func (t Type) String() string {
	return string(t)
}
