package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		cfg      Config
		wantCaps Capabilities
		wantErr  bool
	}{
		{name: "default is local", cfg: Config{}, wantName: "local", wantCaps: NewCapabilities(ModeBlocking, ModeNonBlocking)},
		{name: "http", cfg: Config{Provider: "http", APIKey: "k", BaseURL: "http://x"}, wantName: "http", wantCaps: AllModes},
		{name: "openai", cfg: Config{Provider: "OpenAI", APIKey: "k"}, wantName: "openai", wantCaps: AllModes},
		{name: "anthropic", cfg: Config{Provider: "anthropic", APIKey: "k"}, wantName: "anthropic", wantCaps: NewCapabilities(ModeBlocking, ModeNonBlocking)},
		{
			name:     "capability override narrows",
			cfg:      Config{Provider: "openai", APIKey: "k", Capabilities: []string{"blocking"}},
			wantName: "openai",
			wantCaps: NewCapabilities(ModeBlocking),
		},
		{name: "bad capability", cfg: Config{Provider: "openai", APIKey: "k", Capabilities: []string{"psychic"}}, wantErr: true},
		{name: "missing key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown provider", cfg: Config{Provider: "carrier-pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewBackend(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, backend.Name())
			assert.Equal(t, tt.wantCaps, backend.Capabilities())
		})
	}
}

func TestLocalBackend(t *testing.T) {
	backend := NewLocalBackend()

	raw, err := backend.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.JSONEq(t, LocalResponseText(), Normalize(raw))
}
