// Package openai implements the translation provider on OpenAI-compatible
// chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/glosskit/gloss/pkg/provider"
)

// DefaultModel is used when the configuration does not name one.
const DefaultModel = openai.GPT4oMini

// Config holds OpenAI provider settings.
type Config struct {
	// APIKey authenticates against the API.
	APIKey string

	// BaseURL overrides the endpoint for OpenAI-compatible servers.
	BaseURL string

	// Model is the default model for requests that do not set one.
	Model string

	// MaxTokens caps the completion length. Zero uses the API default.
	MaxTokens int
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("api key is required")
	}
	return nil
}

// Translator calls an OpenAI-compatible chat completion endpoint.
type Translator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

var _ provider.Translator = (*Translator)(nil)

// New creates an OpenAI translator with the given configuration.
func New(cfg Config) (*Translator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Translator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name implements provider.Translator.
func (t *Translator) Name() string {
	return provider.TypeOpenAI.String()
}

// Translate implements provider.Translator.
func (t *Translator) Translate(ctx context.Context, req provider.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = t.model
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   t.maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
	if err != nil {
		return "", t.wrapError(model, err)
	}

	if len(resp.Choices) == 0 {
		return "", &provider.Error{
			Op:       "Translate",
			Provider: provider.TypeOpenAI,
			Model:    model,
			Err:      fmt.Errorf("no completion choices returned"),
		}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &provider.Error{
			Op:       "Translate",
			Provider: provider.TypeOpenAI,
			Model:    model,
			Err:      provider.ErrContentSafety,
		}
	}

	return strings.TrimSpace(choice.Message.Content), nil
}

// wrapError converts API errors to categorized provider errors.
func (t *Translator) wrapError(model string, err error) error {
	wrapped := &provider.Error{
		Op:       "Translate",
		Provider: provider.TypeOpenAI,
		Model:    model,
		Err:      err,
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case isContentPolicy(apiErr):
			wrapped.Err = provider.ErrContentSafety
		case apiErr.HTTPStatusCode == 429 && apiErr.Type == "insufficient_quota":
			wrapped.Err = provider.ErrAuthExhausted
		case apiErr.HTTPStatusCode == 429:
			wrapped.Err = provider.ErrRateLimited
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			wrapped.Err = provider.ErrAuthExhausted
		case apiErr.HTTPStatusCode == 400:
			wrapped.Err = provider.ErrInvalidRequest
		case apiErr.HTTPStatusCode >= 500:
			wrapped.Err = provider.ErrTransient
		}
		return wrapped
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			wrapped.Err = provider.ErrTransient
		}
		return wrapped
	}

	return wrapped
}

// isContentPolicy reports whether the API error is a moderation rejection.
func isContentPolicy(apiErr *openai.APIError) bool {
	if code, ok := apiErr.Code.(string); ok {
		if code == "content_policy_violation" || code == "content_filter" {
			return true
		}
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "content management policy") ||
		strings.Contains(msg, "content policy") ||
		strings.Contains(msg, "safety system")
}
