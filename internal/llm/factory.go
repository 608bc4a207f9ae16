package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewBackend creates a backend for cfg.Provider. A non-empty
// cfg.Capabilities narrows the modes the backend advertises.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch strings.ToLower(cfg.Provider) {
	case "http", "generate":
		backend, err = NewHTTPBackend(cfg)
	case "gemini":
		backend, err = NewGeminiBackend(ctx, cfg)
	case "openai":
		backend, err = NewOpenAIBackend(cfg)
	case "anthropic":
		backend, err = NewAnthropicBackend(cfg)
	case "command", "claudecode":
		backend, err = NewCommandBackend(cfg)
	case "local", "":
		backend = NewLocalBackend()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if len(cfg.Capabilities) > 0 {
		caps, err := ParseCapabilities(cfg.Capabilities)
		if err != nil {
			return nil, err
		}
		backend = RestrictCapabilities(backend, caps)
	}
	return backend, nil
}
