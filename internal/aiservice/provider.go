/*
Package aiservice implements the model providers behind pipeline.Provider.

Each provider makes exactly one request per Generate call and never retries;
the caller decides what a failure means.
*/
package aiservice

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"HealthMate_V0.1/internal/pipeline"
)

// Failure classes surfaced by every provider. The dispatcher reports all of them
// as ProviderUnavailable; the distinction is kept for logs.
var (
	ErrAuthentication = errors.New("model provider rejected the credentials")
	ErrQuota          = errors.New("model provider quota exhausted")
	ErrTransport      = errors.New("model provider request failed")
	ErrEmptyResponse  = errors.New("model provider returned no content")
	ErrNotConfigured  = errors.New("model provider is not configured")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	maxErrorBody = 2048
)

// Config selects and configures the deployment's single provider.
type Config struct {
	Provider string // "gemini" (default) or "openai"

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Timeout bounds the underlying HTTP client. The dispatcher applies its own
	// per-call deadline through the context.
	Timeout time.Duration
}

// New builds the configured provider.
func New(cfg Config) (pipeline.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNotConfigured)
		}
		return NewGeminiClient(GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
		}), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNotConfigured)
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
	}
}

// classifyStatus maps an HTTP status onto a failure class.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthentication
	case code == http.StatusTooManyRequests:
		return ErrQuota
	default:
		return ErrTransport
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
