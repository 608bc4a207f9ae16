// Package analysis turns a financial statement into a validated analysis by
// driving the model through a fallback chain of invocation strategies.
package analysis

import (
	"fmt"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/stream"
)

// PromptBuilder constructs the analysis prompt.
type PromptBuilder interface {
	BuildAnalysisPrompt(input model.FinancialInput, docs []string) (string, error)
}

// Deps contains all dependencies required by the analysis engine.
type Deps struct {
	// Invoker calls the language model, normally an *llm.Gateway.
	Invoker Invoker
	// Retriever supplies knowledge-base snippets for the prompt.
	Retriever service.Retriever
	// PromptBuilder constructs prompts for analysis.
	PromptBuilder PromptBuilder
	// PostProcessor annotates the final result.
	PostProcessor service.PostProcessor
	// AuditSink records every analyzed request.
	AuditSink service.AuditSink
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Invoker == nil {
		return fmt.Errorf("invoker dependency is required")
	}
	if d.Retriever == nil {
		return fmt.Errorf("retriever dependency is required")
	}
	if d.PromptBuilder == nil {
		return fmt.Errorf("prompt builder dependency is required")
	}
	if d.PostProcessor == nil {
		return fmt.Errorf("post-processor dependency is required")
	}
	if d.AuditSink == nil {
		return fmt.Errorf("audit sink dependency is required")
	}
	return nil
}

// Config holds configuration options for the analysis engine.
type Config struct {
	// Assembler controls framing of streamed responses.
	Assembler stream.Config
	// TopK is the number of knowledge-base snippets requested.
	TopK int
	// MaxTokens is passed to every model invocation.
	MaxTokens int
	// AuditTimeout bounds each background audit write.
	AuditTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Assembler:    stream.DefaultConfig(),
		TopK:         5,
		MaxTokens:    llm.DefaultMaxTokens,
		AuditTimeout: 5 * time.Second,
	}
}

// NewEngine creates a new analysis engine with the provided dependencies.
func NewEngine(deps Deps, opts ...EngineOption) (*Engine, error) {
	return NewEngineWithConfig(deps, nil, opts...)
}

// NewEngineWithConfig creates an analysis engine with custom configuration.
func NewEngineWithConfig(deps Deps, config *Config, opts ...EngineOption) (*Engine, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.AuditTimeout <= 0 {
		config.AuditTimeout = 5 * time.Second
	}

	e := &Engine{deps: deps, cfg: *config}
	for _, opt := range opts {
		opt(e)
	}
	e.init()
	return e, nil
}
