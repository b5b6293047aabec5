// Package gemini implements the translation provider on the Google Gemini
// API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/glosskit/gloss/pkg/provider"
)

// DefaultModel is used when the configuration does not name one.
const DefaultModel = "gemini-2.0-flash"

// Config holds Gemini provider settings.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model is the default model for requests that do not set one.
	Model string
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// Translator calls the Gemini generate-content API.
type Translator struct {
	client *genai.Client
	model  string
}

var _ provider.Translator = (*Translator)(nil)

// New creates a Gemini translator with the given configuration.
func New(ctx context.Context, cfg Config) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &provider.Error{
			Op:       "New",
			Provider: provider.TypeGemini,
			Err:      err,
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Translator{client: client, model: model}, nil
}

// Name implements provider.Translator.
func (t *Translator) Name() string {
	return provider.TypeGemini.String()
}

// Translate implements provider.Translator.
func (t *Translator) Translate(ctx context.Context, req provider.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = t.model
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.TopP > 0 {
		genCfg.TopP = genai.Ptr(req.TopP)
	}

	resp, err := t.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return "", t.wrapError(model, err)
	}

	if blocked, reason := blockedBySafety(resp); blocked {
		return "", &provider.Error{
			Op:       "Translate",
			Provider: provider.TypeGemini,
			Model:    model,
			Err:      fmt.Errorf("%w: %s", provider.ErrContentSafety, reason),
		}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &provider.Error{
			Op:       "Translate",
			Provider: provider.TypeGemini,
			Model:    model,
			Err:      fmt.Errorf("empty response"),
		}
	}
	return text, nil
}

// blockedBySafety reports whether the response was withheld by the safety
// filter, either at the prompt or the candidate level.
func blockedBySafety(resp *genai.GenerateContentResponse) (bool, string) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return true, "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
	}
	for _, cand := range resp.Candidates {
		switch cand.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return true, "candidate blocked: " + string(cand.FinishReason)
		}
	}
	return false, ""
}

// wrapError converts Gemini API errors to categorized provider errors.
func (t *Translator) wrapError(model string, err error) error {
	wrapped := &provider.Error{
		Op:       "Translate",
		Provider: provider.TypeGemini,
		Model:    model,
		Err:      err,
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED":
			wrapped.Err = provider.ErrRateLimited
		case apiErr.Code == 401 || apiErr.Code == 403 ||
			apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED":
			wrapped.Err = provider.ErrAuthExhausted
		case apiErr.Code == 400 || apiErr.Status == "INVALID_ARGUMENT":
			wrapped.Err = provider.ErrInvalidRequest
		case apiErr.Code >= 500 || apiErr.Status == "UNAVAILABLE" || apiErr.Status == "INTERNAL":
			wrapped.Err = provider.ErrTransient
		}
		return wrapped
	}

	// Fallback: check error message for common cases.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		wrapped.Err = provider.ErrRateLimited
	case strings.Contains(msg, "UNAUTHENTICATED") || strings.Contains(msg, "PERMISSION_DENIED") ||
		strings.Contains(msg, "API key"):
		wrapped.Err = provider.ErrAuthExhausted
	case strings.Contains(msg, "INVALID_ARGUMENT") || strings.Contains(msg, "400"):
		wrapped.Err = provider.ErrInvalidRequest
	case strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "503") ||
		strings.Contains(msg, "500"):
		wrapped.Err = provider.ErrTransient
	}
	return wrapped
}
