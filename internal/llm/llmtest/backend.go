// Package llmtest provides a scripted llm.Backend for tests.
package llmtest

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
)

// ErrScripted is the default failure returned by Failing backends.
var ErrScripted = errors.New("scripted backend failure")

// Backend replays configured responses and counts calls.
type Backend struct {
	GenerateFunc func(ctx context.Context, req llm.Request) (any, error)
	StreamErr    error
	BackendName  string
	Chunks       []string
	prompts      []string
	generate     int
	stream       int
	mu           sync.Mutex
	Caps         llm.Capabilities
}

// Static returns a backend whose Generate always returns response.
func Static(caps llm.Capabilities, response any) *Backend {
	return &Backend{
		Caps: caps,
		GenerateFunc: func(context.Context, llm.Request) (any, error) {
			return response, nil
		},
	}
}

// Failing returns a backend whose every call fails with err.
func Failing(caps llm.Capabilities, err error) *Backend {
	if err == nil {
		err = ErrScripted
	}
	return &Backend{
		Caps:      caps,
		StreamErr: err,
		GenerateFunc: func(context.Context, llm.Request) (any, error) {
			return nil, err
		},
	}
}

// Name implements llm.Backend.
func (b *Backend) Name() string {
	if b.BackendName == "" {
		return "fake"
	}
	return b.BackendName
}

// Capabilities implements llm.Backend.
func (b *Backend) Capabilities() llm.Capabilities {
	return b.Caps
}

// Generate implements llm.Backend.
func (b *Backend) Generate(ctx context.Context, req llm.Request) (any, error) {
	b.mu.Lock()
	b.generate++
	b.prompts = append(b.prompts, req.Prompt)
	fn := b.GenerateFunc
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrScripted
	}
	return fn(ctx, req)
}

// Stream implements llm.Backend by yielding Chunks, then StreamErr if set.
func (b *Backend) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	b.mu.Lock()
	b.stream++
	b.prompts = append(b.prompts, req.Prompt)
	chunks := append([]string(nil), b.Chunks...)
	streamErr := b.StreamErr
	b.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if streamErr != nil {
			yield("", streamErr)
		}
	}
}

// GenerateCalls returns how many times Generate ran.
func (b *Backend) GenerateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generate
}

// StreamCalls returns how many times Stream ran.
func (b *Backend) StreamCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stream
}

// Prompts returns every prompt received, in order.
func (b *Backend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...)
}
