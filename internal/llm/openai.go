package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

const analystSystemPrompt = "You are a certified financial planner. You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. Start your response directly with { and end with }."

// OpenAIBackend implements Backend for the OpenAI chat completions API.
type OpenAIBackend struct {
	httpClient   *http.Client
	streamClient *http.Client
	apiKey       string
	model        string
	baseURL      string
	temperature  float64
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(cfg Config) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	return &OpenAIBackend{
		apiKey:       cfg.APIKey,
		model:        model,
		temperature:  temperature,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   newHTTPClient(cfg.timeout()),
		streamClient: newHTTPClient(0),
	}, nil
}

// Name implements Backend.
func (c *OpenAIBackend) Name() string { return "openai" }

// Capabilities implements Backend.
func (c *OpenAIBackend) Capabilities() Capabilities { return AllModes }

func (c *OpenAIBackend) requestBody(req Request, stream bool) map[string]any {
	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": analystSystemPrompt},
			{"role": "user", "content": req.Prompt},
		},
		"temperature": c.temperature,
		"max_tokens":  req.MaxTokens,
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *OpenAIBackend) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// Generate implements Backend. The decoded envelope is returned as is;
// Normalize picks choices[0].message.content.
func (c *OpenAIBackend) Generate(ctx context.Context, req Request) (any, error) {
	body, err := postJSON(ctx, c.httpClient, "OpenAI", c.baseURL+"/chat/completions", c.headers(), c.requestBody(req, false))
	if err != nil {
		return nil, err
	}

	var response map[string]any
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if choices, ok := response["choices"].([]any); !ok || len(choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}
	return response, nil
}

// openAIStreamChunk is one server-sent delta.
type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream implements Backend, yielding the content of each delta.
func (c *OpenAIBackend) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		headers := c.headers()
		headers["Accept"] = "text/event-stream"

		resp, err := openJSON(ctx, c.streamClient, "OpenAI", c.baseURL+"/chat/completions", headers, c.requestBody(req, true))
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		eventLines(ctx, resp.Body, func(line string, err error) bool {
			if err != nil {
				return yield("", err)
			}
			data, ok := eventData(line)
			if !ok {
				return true
			}

			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return yield("", fmt.Errorf("failed to parse stream chunk: %w", err))
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return true
			}
			return yield(chunk.Choices[0].Delta.Content, nil)
		})
	}
}
