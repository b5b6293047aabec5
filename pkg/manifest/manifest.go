// Package manifest provides loading and validation of gloss batch manifests.
//
// A batch manifest is a YAML or JSON file that configures a batch
// translation job: provider settings, pipeline tuning, document
// selection by glob pattern, and output placement.
//
// Manifests are validated against a JSON Schema to ensure correctness
// before execution. The schema enforces strict typing and disallows
// unknown properties.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	translation:
//	  provider: gemini
//	  target_lang: de
//	pipeline:
//	  max_workers: 4
//	documents:
//	  root: ./docs
//	  includes:
//	    - "**/*.txt"
//	  excludes:
//	    - "**/drafts/**"
//	output:
//	  dir: ./translated
package manifest

// Manifest represents a validated batch manifest.
//
// Required fields are Version, Translation, and Documents. Pipeline and
// Output are optional with sensible defaults.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Translation configures the provider and prompt.
	Translation TranslationConfig `json:"translation" yaml:"translation"`

	// Pipeline configures chunking and concurrency (optional).
	Pipeline PipelineConfig `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`

	// Documents configures document selection by glob patterns.
	Documents DocumentsConfig `json:"documents" yaml:"documents"`

	// Output configures output placement (optional).
	Output OutputConfig `json:"output,omitempty" yaml:"output,omitempty"`
}

// TranslationConfig configures the translation provider and prompt.
type TranslationConfig struct {
	// Provider is the translation provider. Values: "gemini", "openai".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model name. Empty uses the provider default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// SourceLang is the source language. Empty lets the model detect it.
	SourceLang string `json:"source_lang,omitempty" yaml:"source_lang,omitempty"`

	// TargetLang is the target language.
	TargetLang string `json:"target_lang" yaml:"target_lang"`

	// PromptTemplate is the prompt with a {{slot}} placeholder. Empty
	// uses the built-in default.
	PromptTemplate string `json:"prompt_template,omitempty" yaml:"prompt_template,omitempty"`

	// Temperature and TopP are sampling parameters. Pointers distinguish
	// "unset" from an explicit zero.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
}

// PipelineConfig configures chunking and concurrency.
//
// All fields are optional with defaults applied during loading.
type PipelineConfig struct {
	// MaxChars is the maximum characters per chunk. Default: 6000.
	MaxChars int `json:"max_chars,omitempty" yaml:"max_chars,omitempty"`

	// MaxWorkers is the number of concurrent translation workers.
	// Range: 1-32. Default: 4.
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`

	// MaxSplitAttempts bounds the content-safety split recursion.
	// Default: 3.
	MaxSplitAttempts int `json:"max_split_attempts,omitempty" yaml:"max_split_attempts,omitempty"`

	// MinChunkSize is the smallest piece worth splitting further, in
	// bytes. Default: 100.
	MinChunkSize int `json:"min_chunk_size,omitempty" yaml:"min_chunk_size,omitempty"`

	// RequestsPerMinute limits provider request rate. Zero disables
	// limiting. Default: 60.
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
}

// DocumentsConfig configures document selection by glob patterns.
type DocumentsConfig struct {
	// Root is the directory patterns are resolved against. Empty uses
	// the manifest's directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// Includes is a list of glob patterns for documents to translate.
	// At least one pattern is required.
	Includes []string `json:"includes" yaml:"includes"`

	// Excludes is a list of glob patterns for documents to skip.
	// Optional.
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// OutputConfig configures output placement.
type OutputConfig struct {
	// Dir is the directory translated documents are written to,
	// mirroring the document tree. Default: "translated".
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Suffix is appended to each output filename. Default:
	// ".translated".
	Suffix string `json:"suffix,omitempty" yaml:"suffix,omitempty"`
}

// Default values for optional configuration fields.
const (
	// DefaultVersion is the current manifest schema version.
	DefaultVersion = "1.0"

	// DefaultMaxChars is the default chunk size bound.
	DefaultMaxChars = 6000

	// DefaultMaxWorkers is the default worker count.
	DefaultMaxWorkers = 4

	// DefaultMaxSplitAttempts is the default safety-split recursion bound.
	DefaultMaxSplitAttempts = 3

	// DefaultMinChunkSize is the default smallest splittable piece.
	DefaultMinChunkSize = 100

	// DefaultRequestsPerMinute is the default provider rate limit.
	DefaultRequestsPerMinute = 60

	// DefaultOutputDir is the default output directory.
	DefaultOutputDir = "translated"

	// DefaultOutputSuffix is the default output filename suffix.
	DefaultOutputSuffix = ".translated"
)

// Default sampling parameters applied when the manifest leaves them unset.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
)

// ApplyDefaults fills in default values for optional fields.
//
// This should be called after loading and validating the manifest so
// callers don't need to reason about zero values.
func (m *Manifest) ApplyDefaults() {
	if m.Translation.Temperature == nil {
		v := DefaultTemperature
		m.Translation.Temperature = &v
	}
	if m.Translation.TopP == nil {
		v := DefaultTopP
		m.Translation.TopP = &v
	}

	if m.Pipeline.MaxChars == 0 {
		m.Pipeline.MaxChars = DefaultMaxChars
	}
	if m.Pipeline.MaxWorkers == 0 {
		m.Pipeline.MaxWorkers = DefaultMaxWorkers
	}
	if m.Pipeline.MaxSplitAttempts == 0 {
		m.Pipeline.MaxSplitAttempts = DefaultMaxSplitAttempts
	}
	if m.Pipeline.MinChunkSize == 0 {
		m.Pipeline.MinChunkSize = DefaultMinChunkSize
	}
	if m.Pipeline.RequestsPerMinute == 0 {
		m.Pipeline.RequestsPerMinute = DefaultRequestsPerMinute
	}

	if m.Output.Dir == "" {
		m.Output.Dir = DefaultOutputDir
	}
	if m.Output.Suffix == "" {
		m.Output.Suffix = DefaultOutputSuffix
	}
}
