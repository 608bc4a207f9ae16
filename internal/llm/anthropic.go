package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com/v1"

// AnthropicBackend implements Backend for the Anthropic messages API.
// It does not stream.
type AnthropicBackend struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
}

// NewAnthropicBackend creates a new Anthropic backend.
func NewAnthropicBackend(cfg Config) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &AnthropicBackend{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  newHTTPClient(cfg.timeout()),
	}, nil
}

// Name implements Backend.
func (c *AnthropicBackend) Name() string { return "anthropic" }

// Capabilities implements Backend.
func (c *AnthropicBackend) Capabilities() Capabilities {
	return NewCapabilities(ModeBlocking, ModeNonBlocking)
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate implements Backend.
func (c *AnthropicBackend) Generate(ctx context.Context, req Request) (any, error) {
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}
	body, err := postJSON(ctx, c.httpClient, "anthropic", c.baseURL+"/messages", headers, map[string]any{
		"model":       c.model,
		"max_tokens":  req.MaxTokens,
		"temperature": c.temperature,
		"system":      analystSystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Content) == 0 {
		return nil, fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

// Stream implements Backend.
func (c *AnthropicBackend) Stream(context.Context, Request) iter.Seq2[string, error] {
	return unsupportedStream(c.Name())
}
