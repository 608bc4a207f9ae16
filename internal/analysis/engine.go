package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

// ProgressCallback is called with a stage description and a percentage.
type ProgressCallback func(stage string, percent int)

// Options controls a single Analyze call.
type Options struct {
	ProgressFunc ProgressCallback
	Exec         ExecContext
}

// Result is a finished analysis together with the path the chain took.
type Result struct {
	Report      model.Report
	Transitions []Transition
	Final       State
}

// Engine orchestrates retrieval, prompt construction, the fallback chain,
// post-processing and auditing for one statement at a time.
type Engine struct {
	deps     Deps
	selector *Selector
	tracer   trace.Tracer
	logger   *slog.Logger
	cfg      Config
	pending  sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTracer sets the tracer for the engine and its chain.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger sets the logger for the engine and its chain.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

func (e *Engine) init() {
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.selector = NewSelector(e.deps.Invoker,
		WithAssemblerConfig(e.cfg.Assembler),
		WithMaxTokens(e.cfg.MaxTokens),
		WithSelectorTracer(e.tracer),
		WithSelectorLogger(e.logger),
	)
}

// Analyze produces a report for input. The only error it returns is for
// an invalid statement; model failures end in the rule-based result.
func (e *Engine) Analyze(ctx context.Context, input model.FinancialInput, opts Options) (*Result, error) {
	progress := opts.ProgressFunc
	if progress == nil {
		progress = func(string, int) {}
	}

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	ratio := input.DebtRatio()
	ctx, span := e.tracer.Start(ctx, "analysis.analyze", trace.WithAttributes(
		attribute.Float64("analysis.debt_ratio", ratio),
		attribute.Bool("exec.allow_suspend", opts.Exec.AllowSuspend),
		attribute.Bool("exec.in_scheduler_loop", opts.Exec.InSchedulerLoop),
	))
	defer span.End()

	if input.LiabilitiesExceedAssets() {
		e.logger.Warn("Liabilities exceed assets, continuing analysis",
			"user_id", input.UserID,
			"debt_ratio", ratio)
	}

	progress("Retrieving context", 10)
	docs := e.retrieve(ctx, input)

	progress("Building prompt", 25)
	var outcome Outcome
	prompt, err := e.deps.PromptBuilder.BuildAnalysisPrompt(input, docs)
	if err != nil {
		e.logger.Warn("Failed to build analysis prompt, using rule-based result", "error", err)
		outcome = Outcome{
			Result:      RuleFallback(input),
			Transitions: []Transition{{From: StateEntry, To: StateRuleFallback, Err: err}},
			Final:       StateRuleFallback,
		}
	} else {
		progress("Running AI analysis", 40)
		outcome = e.selector.Run(ctx, input, prompt, opts.Exec)
	}

	progress("Post-processing", 85)
	final := e.deps.PostProcessor.Apply(outcome.Result.Clone())
	final.Source = outcome.Result.Source

	summary := input.Summary()
	e.audit(ctx, summary, final)

	span.SetAttributes(
		attribute.String("chain.final", outcome.Final.String()),
		attribute.Int("chain.transitions", len(outcome.Transitions)),
	)

	progress("Analysis complete", 100)
	return &Result{
		Report: model.Report{
			Summary:   summary,
			DebtRatio: ratio,
			Analysis:  final,
		},
		Transitions: outcome.Transitions,
		Final:       outcome.Final,
	}, nil
}

// retrieve never fails; a retriever error yields no context.
func (e *Engine) retrieve(ctx context.Context, input model.FinancialInput) []string {
	docs, err := e.deps.Retriever.Retrieve(ctx, RetrievalQuery(input), e.cfg.TopK)
	if err != nil {
		e.logger.Warn("Context retrieval failed, continuing without context", "error", err)
		return nil
	}
	return docs
}

// audit records the result in the background. Failures are logged only.
func (e *Engine) audit(ctx context.Context, summary string, result model.AnalysisResult) {
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.AuditTimeout)
		defer cancel()

		if err := e.deps.AuditSink.Record(actx, summary, result); err != nil {
			e.logger.Warn("Failed to record audit entry", "error", err)
		}
	}()
}

// Start creates a pending job and analyzes input in the background. The
// returned job is a snapshot; poll jobs for the final state.
func (e *Engine) Start(ctx context.Context, jobs service.JobStore, input model.FinancialInput) (*model.Job, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}

	job, err := jobs.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	snapshot := *job

	e.pending.Add(1)
	go func(job model.Job) {
		defer e.pending.Done()
		bg := context.WithoutCancel(ctx)

		res, err := e.Analyze(bg, input, Options{Exec: DefaultExecContext()})
		if err != nil {
			job.Status = model.JobError
			job.Error = err.Error()
		} else {
			job.Status = model.JobDone
			job.Result = &res.Report
		}
		job.UpdatedAt = time.Now()

		if err := jobs.Update(bg, &job); err != nil {
			e.logger.Warn("Failed to update job", "job_id", job.ID, "error", err)
		}
	}(snapshot)

	return &snapshot, nil
}

// Wait blocks until background audits and jobs have finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}
