package llm

import (
	"context"
	"encoding/json"
	"iter"
)

// localResponse is what LocalBackend always answers.
var localResponse = map[string]any{
	"overview":        "Simulated summary based on the statement and retrieved context",
	"recommendations": []string{"Pay down balances in order of interest rate", "Review loan rates and consolidate where cheaper"},
	"risks":           []string{"High interest rate exposure"},
	"confidence":      0.75,
}

// LocalBackend is an offline backend for development and tests. It
// returns a fixed, schema-valid analysis.
type LocalBackend struct{}

// NewLocalBackend creates a LocalBackend.
func NewLocalBackend() *LocalBackend { return &LocalBackend{} }

// Name implements Backend.
func (LocalBackend) Name() string { return "local" }

// Capabilities implements Backend.
func (LocalBackend) Capabilities() Capabilities {
	return NewCapabilities(ModeBlocking, ModeNonBlocking)
}

// Generate implements Backend.
func (LocalBackend) Generate(ctx context.Context, _ Request) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(localResponse)
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": string(b)}, nil
}

// Stream implements Backend.
func (b LocalBackend) Stream(context.Context, Request) iter.Seq2[string, error] {
	return unsupportedStream(b.Name())
}

// LocalResponseText returns the document LocalBackend generates.
func LocalResponseText() string {
	b, _ := json.Marshal(localResponse)
	return string(b)
}
