package analysis

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/stream"
)

const tracerName = "github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"

// State is a position in the fallback chain.
type State int

// Chain states. StateEntry is where every run begins; StateDone is the sink.
const (
	StateEntry State = iota
	StateStreamPreferred
	StateNonBlockingPreferred
	StateBlockingFallback
	StateRuleFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEntry:
		return "Entry"
	case StateStreamPreferred:
		return "StreamPreferred"
	case StateNonBlockingPreferred:
		return "NonBlockingPreferred"
	case StateBlockingFallback:
		return "BlockingFallback"
	case StateRuleFallback:
		return "RuleFallback"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// source maps a producing state to the result source it records.
func (s State) source() model.ResultSource {
	switch s {
	case StateStreamPreferred:
		return model.SourceStream
	case StateNonBlockingPreferred:
		return model.SourceNonBlocking
	case StateBlockingFallback:
		return model.SourceBlocking
	default:
		return model.SourceRule
	}
}

// ExecContext describes the caller's execution environment. It is set
// explicitly by the caller.
type ExecContext struct {
	// AllowSuspend permits the streamed mode, which holds the request open
	// while chunks arrive.
	AllowSuspend bool
	// InSchedulerLoop marks a caller running inside a cooperative loop that
	// must not wait on a non-blocking call. The chain goes straight to the
	// blocking mode instead.
	InSchedulerLoop bool
}

// DefaultExecContext is the context of an ordinary request goroutine.
func DefaultExecContext() ExecContext {
	return ExecContext{AllowSuspend: true}
}

// Transition records one move between chain states. The move into
// StateDone is not recorded; Outcome.Final names the state that produced
// the result.
type Transition struct {
	Err  error
	From State
	To   State
}

// Outcome is the result of one chain run.
type Outcome struct {
	Result      model.AnalysisResult
	Transitions []Transition
	Final       State
}

// Invoker is the subset of the gateway the chain drives.
type Invoker interface {
	Capabilities() llm.Capabilities
	BackendName() string
	GenerateBlocking(ctx context.Context, prompt string, maxTokens int) (string, error)
	GenerateNonBlocking(ctx context.Context, prompt string, maxTokens int) *llm.Future
	GenerateStreamed(ctx context.Context, prompt string, maxTokens int) iter.Seq2[string, error]
}

var errNoObject = fmt.Errorf("%w: stream ended without a complete object", common.ErrMalformedOutput)

var errSchedulerLoop = errors.New("caller is inside a scheduler loop")

// Selector runs the fallback chain for one prompt at a time. It holds no
// per-request state and is safe for concurrent use.
type Selector struct {
	invoker   Invoker
	validator *ResultValidator
	tracer    trace.Tracer
	logger    *slog.Logger
	assembler stream.Config
	maxTokens int
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithAssemblerConfig sets the framing used for streamed responses.
func WithAssemblerConfig(cfg stream.Config) SelectorOption {
	return func(s *Selector) { s.assembler = cfg }
}

// WithMaxTokens sets the token limit passed to every invocation.
func WithMaxTokens(n int) SelectorOption {
	return func(s *Selector) { s.maxTokens = n }
}

// WithSelectorTracer sets the tracer used for per-state spans.
func WithSelectorTracer(t trace.Tracer) SelectorOption {
	return func(s *Selector) { s.tracer = t }
}

// WithSelectorLogger sets the logger.
func WithSelectorLogger(l *slog.Logger) SelectorOption {
	return func(s *Selector) { s.logger = l }
}

// NewSelector creates a chain over invoker.
func NewSelector(invoker Invoker, opts ...SelectorOption) *Selector {
	s := &Selector{
		invoker:   invoker,
		validator: NewResultValidator(),
		assembler: stream.DefaultConfig(),
		maxTokens: llm.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Entry picks the first state for the advertised capabilities.
func Entry(caps llm.Capabilities, exec ExecContext) State {
	switch {
	case caps.Has(llm.ModeStream) && exec.AllowSuspend:
		return StateStreamPreferred
	case caps.Has(llm.ModeNonBlocking):
		return StateNonBlockingPreferred
	default:
		return StateBlockingFallback
	}
}

// Run drives the chain until a result is produced. It never fails: when
// every mode is exhausted the rule-based result for input is returned.
func (s *Selector) Run(ctx context.Context, input model.FinancialInput, prompt string, exec ExecContext) Outcome {
	caps := s.invoker.Capabilities()
	out := Outcome{}

	state := Entry(caps, exec)
	out.Transitions = append(out.Transitions, Transition{From: StateEntry, To: state})

	for {
		result, err := s.runState(ctx, state, input, prompt, exec)
		if err == nil {
			result.Source = state.source()
			out.Result = result
			out.Final = state
			s.logger.Debug("Analysis chain finished",
				"state", state,
				"backend", s.invoker.BackendName(),
				"transitions", len(out.Transitions))
			return out
		}

		next := s.next(state, caps)
		s.logger.Info("Invocation strategy failed, falling back",
			"from", state,
			"to", next,
			"backend", s.invoker.BackendName(),
			"error", err)
		out.Transitions = append(out.Transitions, Transition{From: state, To: next, Err: err})
		state = next
	}
}

// next is the state that follows a failure in state.
func (s *Selector) next(state State, caps llm.Capabilities) State {
	switch state {
	case StateStreamPreferred:
		if caps.Has(llm.ModeNonBlocking) {
			return StateNonBlockingPreferred
		}
		return StateBlockingFallback
	case StateNonBlockingPreferred:
		return StateBlockingFallback
	default:
		return StateRuleFallback
	}
}

func (s *Selector) runState(ctx context.Context, state State, input model.FinancialInput, prompt string, exec ExecContext) (model.AnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "chain."+state.String(), trace.WithAttributes(
		attribute.String("chain.state", state.String()),
		attribute.String("llm.backend", s.invoker.BackendName()),
	))
	defer span.End()

	var (
		result model.AnalysisResult
		err    error
	)
	switch state {
	case StateStreamPreferred:
		result, err = s.streamed(ctx, prompt)
	case StateNonBlockingPreferred:
		result, err = s.nonBlocking(ctx, prompt, exec)
	case StateBlockingFallback:
		result, err = s.blocking(ctx, prompt)
	default:
		result = RuleFallback(input)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "strategy failed")
		return model.AnalysisResult{}, err
	}
	return result, nil
}

// streamed feeds each chunk to a fresh assembler and validates every
// complete object it yields. Returning early abandons the stream.
func (s *Selector) streamed(ctx context.Context, prompt string) (model.AnalysisResult, error) {
	asm := stream.NewAssembler(s.assembler)
	lastErr := errNoObject
	objects := 0

	for chunk, err := range s.invoker.GenerateStreamed(ctx, prompt, s.maxTokens) {
		if err != nil {
			return model.AnalysisResult{}, err
		}
		for raw, ok := asm.Feed(chunk); ok; raw, ok = asm.Feed("") {
			objects++
			result, verr := s.validator.Validate(raw)
			if verr == nil {
				return result, nil
			}
			s.logger.Debug("Discarding invalid streamed object", "error", verr)
			lastErr = verr
		}
		if asm.Finished() {
			break
		}
	}

	if objects > 0 {
		return model.AnalysisResult{}, fmt.Errorf("none of %d streamed objects was valid: %w", objects, lastErr)
	}
	return model.AnalysisResult{}, lastErr
}

func (s *Selector) nonBlocking(ctx context.Context, prompt string, exec ExecContext) (model.AnalysisResult, error) {
	if exec.InSchedulerLoop {
		return model.AnalysisResult{}, errSchedulerLoop
	}
	text, err := s.invoker.GenerateNonBlocking(ctx, prompt, s.maxTokens).Await(ctx)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return s.validator.ValidateText(text)
}

func (s *Selector) blocking(ctx context.Context, prompt string) (model.AnalysisResult, error) {
	text, err := s.invoker.GenerateBlocking(ctx, prompt, s.maxTokens)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return s.validator.ValidateText(text)
}
