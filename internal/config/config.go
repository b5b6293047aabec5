// Package config loads the gloss runtime configuration.
//
// Precedence, highest first: runtime overrides passed to Load, then
// environment variables (GLOSS_ prefix, plus a few conventional aliases
// like GEMINI_API_KEY), then an optional config file, then built-in
// defaults.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Translation TranslationConfig `mapstructure:"translation"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	S3          S3Config          `mapstructure:"s3"`
}

// ServerConfig configures the HTTP status server.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// TranslationConfig configures the translation provider and prompt.
type TranslationConfig struct {
	Provider       string  `mapstructure:"provider"`
	Model          string  `mapstructure:"model"`
	SourceLang     string  `mapstructure:"source_lang"`
	TargetLang     string  `mapstructure:"target_lang"`
	PromptTemplate string  `mapstructure:"prompt_template"`
	Temperature    float64 `mapstructure:"temperature"`
	TopP           float64 `mapstructure:"top_p"`

	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
}

// PipelineConfig configures chunking, concurrency, and rate limiting.
type PipelineConfig struct {
	MaxChars          int `mapstructure:"max_chars"`
	MaxWorkers        int `mapstructure:"max_workers"`
	MaxSplitAttempts  int `mapstructure:"max_split_attempts"`
	MinChunkSize      int `mapstructure:"min_chunk_size"`
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// S3Config configures access to s3:// document URIs.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Profile        string `mapstructure:"profile"`
	AccessKeyID    string `mapstructure:"access_key_id"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
}

// setDefaults registers the built-in defaults on a viper instance.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	// Translation defaults
	v.SetDefault("translation.provider", "gemini")
	v.SetDefault("translation.model", "")
	v.SetDefault("translation.source_lang", "")
	v.SetDefault("translation.target_lang", "")
	v.SetDefault("translation.prompt_template", "")
	v.SetDefault("translation.temperature", 0.7)
	v.SetDefault("translation.top_p", 0.9)

	// Pipeline defaults
	v.SetDefault("pipeline.max_chars", 6000)
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("pipeline.max_split_attempts", 3)
	v.SetDefault("pipeline.min_chunk_size", 100)
	v.SetDefault("pipeline.requests_per_minute", 60)

	// S3 defaults
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.force_path_style", false)
}
