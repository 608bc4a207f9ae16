package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestCommandBackend_Generate(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    string
		wantErr bool
	}{
		{
			name:   "json result",
			script: `echo '{"type":"result","result":"{\"overview\":\"cli\"}","is_error":false}'`,
			want:   `{"overview":"cli"}`,
		},
		{
			name:   "plain output",
			script: `echo 'plain answer'`,
			want:   "plain answer",
		},
		{
			name:    "reported error",
			script:  `echo '{"result":"quota","is_error":true}'`,
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			script:  `echo 'broken' >&2; exit 3`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := NewCommandBackend(Config{CommandPath: writeScript(t, tt.script)})
			require.NoError(t, err)

			raw, err := backend.Generate(context.Background(), Request{Prompt: "p"})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, Normalize(raw))
		})
	}
}

func TestCommandBackend_BlockingOnly(t *testing.T) {
	backend, err := NewCommandBackend(Config{CommandPath: writeScript(t, "true")})
	require.NoError(t, err)

	assert.Equal(t, NewCapabilities(ModeBlocking), backend.Capabilities())

	_, err = NewCommandBackend(Config{CommandPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
