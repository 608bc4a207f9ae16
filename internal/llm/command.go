package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os/exec"
	"strings"
	"time"
)

// CommandBackend runs a local CLI (Claude Code by default) once per
// request. It is blocking only: the process owns the caller's goroutine
// for its lifetime.
type CommandBackend struct {
	cliPath string
	model   string
	timeout time.Duration
}

// NewCommandBackend creates a CLI backend.
func NewCommandBackend(cfg Config) (*CommandBackend, error) {
	cliPath := cfg.CommandPath
	if cliPath == "" {
		cliPath = "claude"
	}

	if _, err := exec.LookPath(cliPath); err != nil {
		return nil, fmt.Errorf("CLI not found at %s: %w", cliPath, err)
	}

	model := cfg.Model
	if model == "" {
		model = "sonnet"
	}

	return &CommandBackend{cliPath: cliPath, model: model, timeout: cfg.timeout()}, nil
}

// Name implements Backend.
func (c *CommandBackend) Name() string { return "command" }

// Capabilities implements Backend.
func (c *CommandBackend) Capabilities() Capabilities { return NewCapabilities(ModeBlocking) }

// commandResponse is the JSON printed by the CLI with --output-format json.
type commandResponse struct {
	Result    string  `json:"result"`
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	IsError   bool    `json:"is_error"`
	TotalCost float64 `json:"total_cost_usd"`
}

// Generate implements Backend.
func (c *CommandBackend) Generate(ctx context.Context, req Request) (any, error) {
	args := []string{
		"-p", analystSystemPrompt + "\n\n" + req.Prompt,
		"--output-format", "json",
		"--model", c.model,
		"--max-turns", "1",
	}

	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cmdCtx, c.cliPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("command error: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to execute %s: %w", c.cliPath, err)
	}

	var response commandResponse
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return strings.TrimSpace(stdout.String()), nil
	}
	if response.IsError {
		return nil, fmt.Errorf("command reported an error: %s", response.Result)
	}
	if response.Result == "" {
		return nil, fmt.Errorf("empty response from %s", c.cliPath)
	}
	return response.Result, nil
}

// Stream implements Backend.
func (c *CommandBackend) Stream(context.Context, Request) iter.Seq2[string, error] {
	return unsupportedStream(c.Name())
}
