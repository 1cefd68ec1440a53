package aiservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"HealthMate_V0.1/internal/pipeline"
	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultHTTPTimeout   = 90 * time.Second
	structuredMimeType   = "application/json"
)

// --- Structs for Gemini API Request/Response ---

type geminiPayload struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	ModelVersion string `json:"modelVersion"`
}

// GeminiConfig configures a GeminiClient. Zero values select defaults.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	c := &GeminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
	if c.model == "" {
		c.model = defaultGeminiModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultGeminiBaseURL
	}
	if c.httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c
}

// Generate sends one generateContent request. There is no retry loop.
func (c *GeminiClient) Generate(ctx context.Context, prompt pipeline.PromptSpec) (pipeline.RawModelResponse, error) {
	log := zerolog.Ctx(ctx)
	out := pipeline.RawModelResponse{Provider: ProviderGemini, Model: c.model}

	if c.apiKey == "" {
		return out, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNotConfigured)
	}

	// 1. Build the payload
	parts := []geminiPart{{Text: prompt.Text}}
	if len(prompt.Image) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: prompt.MediaType,
			Data:     base64.StdEncoding.EncodeToString(prompt.Image),
		}})
	}

	payload := geminiPayload{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{Temperature: 0.2},
	}
	if prompt.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: prompt.System}}}
	}
	if prompt.ExpectJSON {
		payload.GenerationConfig.ResponseMimeType = structuredMimeType
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("failed to marshal payload: %w", err)
	}
	out.Sent = payloadBytes

	// 2. Single request
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Kept out of the URL so transport errors never carry it.
	req.Header.Set("x-goog-api-key", c.apiKey)

	log.Debug().Str("model", c.model).Int("image_bytes", len(prompt.Image)).Msg("Calling Gemini API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, fmt.Errorf("%w: gemini returned %s: %s", classifyStatus(resp.StatusCode), resp.Status, truncate(string(body), maxErrorBody))
	}

	// 3. Decode
	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return out, fmt.Errorf("%w: failed to decode response: %w", ErrTransport, err)
	}
	if geminiResp.ModelVersion != "" {
		out.Model = geminiResp.ModelVersion
	}

	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		return out, fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, geminiResp.PromptFeedback.BlockReason)
	}
	if len(geminiResp.Candidates) == 0 {
		return out, ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return out, fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, geminiResp.Candidates[0].FinishReason)
	}

	out.Text = text.String()
	return out, nil
}
