package aiservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"HealthMate_V0.1/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGemini(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewGeminiClient(GeminiConfig{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL}), &calls
}

func TestGeminiGenerateSendsStructuredRequest(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0}
	var got geminiPayload

	client, calls := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}],"modelVersion":"gemini-test-001"}`)
	})

	out, err := client.Generate(context.Background(), pipeline.PromptSpec{
		Kind:       pipeline.TaskPrescription,
		System:     "system text",
		Text:       "user text",
		Image:      img,
		MediaType:  "image/jpeg",
		ExpectJSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, out.Text)
	assert.Equal(t, "gemini-test-001", out.Model)
	assert.Equal(t, ProviderGemini, out.Provider)
	assert.NotEmpty(t, out.Sent)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "system text", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "user text", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/jpeg", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(img), got.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
}

func TestGeminiStatusClassificationWithoutRetry(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthentication},
		{http.StatusForbidden, ErrAuthentication},
		{http.StatusTooManyRequests, ErrQuota},
		{http.StatusInternalServerError, ErrTransport},
		{http.StatusServiceUnavailable, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, calls := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			})

			_, err := client.Generate(context.Background(), pipeline.PromptSpec{Text: "x"})

			assert.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 1, atomic.LoadInt32(calls))
		})
	}
}

func TestGeminiEmptyResponses(t *testing.T) {
	bodies := map[string]string{
		"no candidates": `{"candidates":[]}`,
		"blocked":       `{"promptFeedback":{"blockReason":"SAFETY"}}`,
		"blank text":    `{"candidates":[{"content":{"parts":[{"text":"  "}]},"finishReason":"MAX_TOKENS"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client, _ := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := client.Generate(context.Background(), pipeline.PromptSpec{Text: "x"})
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestGeminiHonorsContextDeadline(t *testing.T) {
	client, _ := newGemini(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, pipeline.PromptSpec{Text: "x"})
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGeminiTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "SECRET-KEY-123", Model: "gemini-test", BaseURL: baseURL})
	_, err := client.Generate(context.Background(), pipeline.PromptSpec{Text: "x"})

	require.ErrorIs(t, err, ErrTransport)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestGeminiMissingKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiConfig{}).Generate(context.Background(), pipeline.PromptSpec{Text: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func newOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", Model: "gpt-test", BaseURL: srv.URL + "/v1"})
}

func TestOpenAIGenerateWithImage(t *testing.T) {
	var got map[string]any
	client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-test-2024","choices":[{"index":0,"message":{"role":"assistant","content":"{\"doctor\":\"Dr. Lee\"}"},"finish_reason":"stop"}]}`)
	})

	out, err := client.Generate(context.Background(), pipeline.PromptSpec{
		System:     "sys",
		Text:       "read this",
		Image:      []byte("png-bytes"),
		MediaType:  "image/png",
		ExpectJSON: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"doctor":"Dr. Lee"}`, out.Text)
	assert.Equal(t, "gpt-test-2024", out.Model)
	assert.NotEmpty(t, out.Sent)

	assert.Equal(t, "gpt-test", got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("png-bytes")), image["url"])
}

func TestOpenAIStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthentication},
		{http.StatusTooManyRequests, ErrQuota},
		{http.StatusBadGateway, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":{"message":"denied","type":"invalid_request_error"}}`)
			})

			_, err := client.Generate(context.Background(), pipeline.PromptSpec{Text: "x"})

			assert.ErrorIs(t, err, tt.want)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
		})
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	client := newOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	})

	_, err := client.Generate(context.Background(), pipeline.PromptSpec{Text: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(Config{GeminiAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, p)

	p, err = New(Config{Provider: "OpenAI", OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, p)

	_, err = New(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(Config{Provider: "llama", GeminiAPIKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
