package llm

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
)

// HTTPBackend talks to a generic generation endpoint:
//
//	POST {base}/generate {"prompt": ..., "max_tokens": ..., "stream": bool}
//
// Blocking responses may be plain text or any JSON envelope Normalize
// understands. Streamed responses are event-stream lines.
type HTTPBackend struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
}

// NewHTTPBackend creates a generic HTTP backend.
func NewHTTPBackend(cfg Config) (*HTTPBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generate endpoint API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("generate endpoint base URL is required")
	}

	return &HTTPBackend{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   newHTTPClient(cfg.timeout()),
		streamClient: newHTTPClient(0),
	}, nil
}

// Name implements Backend.
func (b *HTTPBackend) Name() string { return "http" }

// Capabilities implements Backend.
func (b *HTTPBackend) Capabilities() Capabilities { return AllModes }

func (b *HTTPBackend) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + b.apiKey}
}

// Generate implements Backend.
func (b *HTTPBackend) Generate(ctx context.Context, req Request) (any, error) {
	body, err := postJSON(ctx, b.httpClient, "generate", b.baseURL+"/generate", b.headers(), map[string]any{
		"prompt":     req.Prompt,
		"max_tokens": req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return decodeBody(body), nil
}

// Stream implements Backend. Lines are yielded with their framing so the
// assembler sees exactly what the transport delivered.
func (b *HTTPBackend) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		headers := b.headers()
		headers["Accept"] = "text/event-stream"

		resp, err := openJSON(ctx, b.streamClient, "generate", b.baseURL+"/generate", headers, map[string]any{
			"prompt":     req.Prompt,
			"max_tokens": req.MaxTokens,
			"stream":     true,
		})
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		eventLines(ctx, resp.Body, yield)
	}
}
