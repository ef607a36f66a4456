package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medreport-backend/internal/llm"
	"medreport-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "deepseek/deepseek-r1-0528-qwen3-8b:free"
	DefaultTemperature = 0.3

	completionsPath = "/chat/completions"
	maxResponseSize = 4 << 20
)

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client implements llm.Client against any OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	httpClient  *http.Client
}

// NewClient constructs a chat completions client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("LLM_BASE_URL must be an http(s) url")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	temperature := opts.Temperature
	if temperature < 0 {
		return nil, fmt.Errorf("LLM_TEMPERATURE must not be negative")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:    base + completionsPath,
		model:       model,
		temperature: temperature,
		httpClient:  httpClient,
	}, nil
}

// Model returns the default model name.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends exactly one POST and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, in llm.Request) (string, error) {
	apiKey := strings.TrimSpace(in.APIKey)
	if apiKey == "" {
		return "", fmt.Errorf("llm api key is required")
	}
	if len(in.Messages) == 0 {
		return "", fmt.Errorf("llm request has no messages")
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.model
	}
	temp := c.temperature
	if in.Temperature != nil {
		temp = *in.Temperature
	}
	reqBody := chatRequest{
		Model:       model,
		Messages:    make([]chatMessage, 0, len(in.Messages)),
		Temperature: &temp,
	}
	for _, m := range in.Messages {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if sink, ok := llm.PromptHashSinkFromContext(ctx); ok && sink != nil {
		*sink = llm.HashMessages(in.Messages)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", &llm.ExternalServiceError{Err: fmt.Errorf("llm request timeout: %w", err)}
		}
		return "", &llm.ExternalServiceError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &llm.ExternalServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &llm.ExternalServiceError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.ExternalServiceError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("llm response parse: %w", err),
		}
	}
	if parsed.Error != nil {
		return "", &llm.ExternalServiceError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("llm error: %s (%s)", parsed.Error.Message, parsed.Error.Type),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.ExternalServiceError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("response missing choices: %w", llm.ErrEmptyCompletion),
		}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &llm.ExternalServiceError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Err:        llm.ErrEmptyCompletion,
		}
	}

	logUsage(model, parsed, time.Since(started))
	return content, nil
}

func logUsage(model string, parsed chatResponse, elapsed time.Duration) {
	fields := map[string]any{
		"model":       model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if parsed.ID != "" {
		fields["response_id"] = parsed.ID
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
