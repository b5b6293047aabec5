package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// FingerprintConfig collects every configuration field that affects
// translation output. Changing any of them invalidates prior progress.
type FingerprintConfig struct {
	Provider       string
	Model          string
	PromptTemplate string
	SourceLang     string
	TargetLang     string
	Temperature    float32
	TopP           float32
	MaxChars       int

	// MaxSplitAttempts and MinChunkSize bound the content-safety split
	// strategy, which decides placeholder granularity in the output.
	MaxSplitAttempts int
	MinChunkSize     int
}

// fingerprintPayload is the canonical serialization for hashing. Field
// order is fixed by the struct, values are normalized, so identical
// configurations always hash identically regardless of how they were
// assembled.
type fingerprintPayload struct {
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	PromptTemplate string  `json:"prompt_template"`
	SourceLang     string  `json:"source_lang"`
	TargetLang     string  `json:"target_lang"`
	Temperature    float32 `json:"temperature"`
	TopP           float32 `json:"top_p"`
	MaxChars       int     `json:"max_chars"`

	MaxSplitAttempts int `json:"max_split_attempts"`
	MinChunkSize     int `json:"min_chunk_size"`
}

// Fingerprint computes a stable hex-encoded SHA-256 over the canonical
// form of the translation-affecting configuration.
func Fingerprint(cfg FingerprintConfig) string {
	payload := fingerprintPayload{
		Provider:       strings.ToLower(strings.TrimSpace(cfg.Provider)),
		Model:          strings.TrimSpace(cfg.Model),
		PromptTemplate: cfg.PromptTemplate,
		SourceLang:     strings.ToLower(strings.TrimSpace(cfg.SourceLang)),
		TargetLang:     strings.ToLower(strings.TrimSpace(cfg.TargetLang)),
		Temperature:    cfg.Temperature,
		TopP:           cfg.TopP,
		MaxChars:       cfg.MaxChars,

		MaxSplitAttempts: cfg.MaxSplitAttempts,
		MinChunkSize:     cfg.MinChunkSize,
	}

	// Struct field order fixes the JSON key order, making the hash
	// deterministic without sorting at hash time.
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a flat struct cannot fail; keep the signature simple.
		return ""
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
