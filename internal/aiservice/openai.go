package aiservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"HealthMate_V0.1/internal/pipeline"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAIClient. Zero values select defaults.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // OpenAI-compatible endpoint, e.g. a local gateway
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	switch {
	case cfg.HTTPClient != nil:
		oc.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	default:
		oc.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(oc), model: model}
}

// Generate sends one chat completion request. Images travel as data URLs.
func (c *OpenAIClient) Generate(ctx context.Context, prompt pipeline.PromptSpec) (pipeline.RawModelResponse, error) {
	out := pipeline.RawModelResponse{Provider: ProviderOpenAI, Model: c.model}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(prompt.Image) > 0 {
		dataURL := "data:" + prompt.MediaType + ";base64," + base64.StdEncoding.EncodeToString(prompt.Image)
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.Text},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailHigh}},
		}
	} else {
		user.Content = prompt.Text
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, user)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
	}
	if prompt.ExpectJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	if sent, err := json.Marshal(req); err == nil {
		out.Sent = sent
	}

	zerolog.Ctx(ctx).Debug().Str("model", c.model).Int("image_bytes", len(prompt.Image)).Msg("Calling OpenAI API")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return out, classifyOpenAIError(err)
	}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return out, ErrEmptyResponse
	}

	out.Text = resp.Choices[0].Message.Content
	return out, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai returned %d: %s", classifyStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, truncate(apiErr.Message, maxErrorBody))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: openai returned %d: %w", classifyStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
