package llm

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
)

// DefaultMaxTokens is used when a request does not set a limit.
const DefaultMaxTokens = 512

// Request is a single generation call.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Backend is a text-generation provider.
//
// Generate returns the provider's response in whatever shape it has:
// a string, or a decoded JSON value that Normalize reduces to text.
// Stream yields raw text chunks in arrival order and stops at the end
// of the response; it is called at most once per Request.
type Backend interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req Request) (any, error)
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
}

// Config holds provider settings shared by every backend.
type Config struct {
	Provider     string
	APIKey       string
	Model        string
	BaseURL      string
	CommandPath  string
	Capabilities []string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	RateLimit    int
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// newHTTPClient mirrors the pooled transport used by every HTTP backend.
// Streaming clients get no overall timeout; the context bounds them.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider string
	Body     string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusTooManyRequests {
		return common.ErrRateLimit
	}
	return common.ErrTransport
}

// unsupportedStream is the Stream of backends without ModeStream.
func unsupportedStream(name string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", fmt.Errorf("%w: %s does not stream", common.ErrCapabilityUnavailable, name))
	}
}

// withCapabilities overrides the advertised modes of a backend.
type withCapabilities struct {
	Backend
	caps Capabilities
}

func (w withCapabilities) Capabilities() Capabilities {
	return w.caps
}

// RestrictCapabilities narrows what b advertises to the modes in caps.
// It never adds a mode b does not support.
func RestrictCapabilities(b Backend, caps Capabilities) Backend {
	return withCapabilities{Backend: b, caps: b.Capabilities().Intersect(caps)}
}
