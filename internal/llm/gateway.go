package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

// ErrStreamConsumed is returned when a streamed sequence is iterated twice.
var ErrStreamConsumed = errors.New("stream already consumed")

const tracerName = "github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"

// Gateway invokes a Backend in one of three modes. Its configuration is
// fixed at construction and it is safe for concurrent use.
type Gateway struct {
	backend   Backend
	limiter   *RateLimiter
	tracer    trace.Tracer
	logger    *slog.Logger
	retry     service.RetryOptions
	maxTokens int
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRetryOptions replaces the default 3 attempt, 500ms base backoff.
func WithRetryOptions(opts service.RetryOptions) GatewayOption {
	return func(g *Gateway) { g.retry = opts }
}

// WithRateLimiter throttles every network attempt.
func WithRateLimiter(rl *RateLimiter) GatewayOption {
	return func(g *Gateway) { g.limiter = rl }
}

// WithTracer sets the tracer used for invocation spans.
func WithTracer(t trace.Tracer) GatewayOption {
	return func(g *Gateway) { g.tracer = t }
}

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithDefaultMaxTokens sets the limit used when a call passes 0.
func WithDefaultMaxTokens(n int) GatewayOption {
	return func(g *Gateway) { g.maxTokens = n }
}

// NewGateway wraps backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		backend:   backend,
		retry:     common.DefaultRetryOptions(),
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	// A 429 backs off like any other failure so the chain can fall back.
	g.retry.UniformBackoff = true
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Capabilities returns the modes the wrapped backend advertises.
func (g *Gateway) Capabilities() Capabilities {
	return g.backend.Capabilities()
}

// BackendName identifies the wrapped backend.
func (g *Gateway) BackendName() string {
	return g.backend.Name()
}

func (g *Gateway) request(prompt string, maxTokens int) Request {
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	return Request{Prompt: prompt, MaxTokens: maxTokens}
}

func (g *Gateway) unavailable(mode Mode) error {
	return fmt.Errorf("%w: %s backend does not support %s", common.ErrCapabilityUnavailable, g.backend.Name(), mode)
}

// GenerateBlocking calls the backend on the caller's goroutine, retrying
// failures with exponential backoff. The last failure is returned once
// attempts are exhausted.
func (g *Gateway) GenerateBlocking(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !g.Capabilities().Has(ModeBlocking) {
		return "", g.unavailable(ModeBlocking)
	}
	out := g.invoke(ctx, ModeBlocking, g.request(prompt, maxTokens))
	return out.Text, out.Err
}

// GenerateNonBlocking starts the call on its own goroutine and returns
// immediately. Retry and normalization are identical to GenerateBlocking;
// the caller is free to do other work until the Future resolves.
func (g *Gateway) GenerateNonBlocking(ctx context.Context, prompt string, maxTokens int) *Future {
	f := newFuture()
	if !g.Capabilities().Has(ModeNonBlocking) {
		f.resolve(Outcome{Err: g.unavailable(ModeNonBlocking)})
		return f
	}

	req := g.request(prompt, maxTokens)
	go func() {
		f.resolve(g.invoke(ctx, ModeNonBlocking, req))
	}()
	return f
}

func (g *Gateway) invoke(ctx context.Context, mode Mode, req Request) Outcome {
	ctx, span := g.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.backend", g.backend.Name()),
		attribute.String("llm.mode", mode.String()),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	))
	defer span.End()

	var out Outcome
	err := common.WithRetry(ctx, func() error {
		out.Attempts++
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		raw, err := g.backend.Generate(ctx, req)
		if err != nil {
			if errors.Is(err, common.ErrCapabilityUnavailable) {
				return common.Permanent(err)
			}
			return err
		}
		out.Text = Normalize(raw)
		return nil
	}, g.retry)

	span.SetAttributes(attribute.Int("llm.attempts", out.Attempts))
	if err != nil {
		out.Text = ""
		out.Err = fmt.Errorf("%s generate via %s: %w", mode, g.backend.Name(), err)
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "generate failed")
		g.logger.Debug("Generation failed", "backend", g.backend.Name(), "mode", mode, "attempts", out.Attempts, "error", err)
		return out
	}
	return out
}

// GenerateStreamed returns a lazy sequence of raw chunks. Nothing is sent
// until the sequence is ranged over, it can be ranged over only once, and
// failures are not retried. Breaking out of the loop cancels the
// underlying request.
func (g *Gateway) GenerateStreamed(ctx context.Context, prompt string, maxTokens int) iter.Seq2[string, error] {
	req := g.request(prompt, maxTokens)
	var used atomic.Bool

	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		if !g.Capabilities().Has(ModeStream) {
			yield("", g.unavailable(ModeStream))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ctx, span := g.tracer.Start(ctx, "llm.stream", trace.WithAttributes(
			attribute.String("llm.backend", g.backend.Name()),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		))
		defer span.End()

		if err := g.limiter.Wait(ctx); err != nil {
			yield("", err)
			return
		}

		chunks := 0
		for chunk, err := range g.backend.Stream(ctx, req) {
			if err != nil {
				if !errors.Is(err, common.ErrCapabilityUnavailable) && !errors.Is(err, context.Canceled) {
					err = fmt.Errorf("%w: %w", common.ErrTransport, err)
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, "stream failed")
				yield("", err)
				return
			}
			chunks++
			if !yield(chunk, nil) {
				span.SetAttributes(attribute.Bool("llm.abandoned", true), attribute.Int("llm.chunks", chunks))
				return
			}
		}
		span.SetAttributes(attribute.Int("llm.chunks", chunks))
	}
}

// Outcome is the result of one blocking or non-blocking invocation.
type Outcome struct {
	Err      error
	Text     string
	Attempts int
}

// OK reports success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Transient reports a failure that a later attempt might not repeat.
func (o Outcome) Transient() bool {
	return o.Err != nil && common.IsRetryable(o.Err) && !errors.Is(o.Err, common.ErrMaxRetries)
}

// Future is a pending non-blocking invocation.
type Future struct {
	done    chan struct{}
	outcome Outcome
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(o Outcome) {
	f.outcome = o
	close(f.done)
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await waits for the outcome or for ctx to end.
func (f *Future) Await(ctx context.Context) (string, error) {
	select {
	case <-f.done:
		return f.outcome.Text, f.outcome.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Outcome returns the resolved outcome. It blocks until Done is closed.
func (f *Future) Outcome() Outcome {
	<-f.done
	return f.outcome
}
