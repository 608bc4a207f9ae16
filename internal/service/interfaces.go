// Package service defines the interfaces shared between the analysis
// pipeline and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// Retriever supplies background snippets for a prompt.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// PostProcessor annotates a final result. Implementations must not drop
// the required fields and must not have side effects.
type PostProcessor interface {
	Apply(result model.AnalysisResult) model.AnalysisResult
}

// AuditSink records one entry per analyzed request.
type AuditSink interface {
	Record(ctx context.Context, summary string, result model.AnalysisResult) error
}

// JobStore holds the state of asynchronous report jobs.
type JobStore interface {
	Create(ctx context.Context) (*model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

// StatementSource produces a statement from an external system.
type StatementSource interface {
	Load(ctx context.Context) (model.FinancialInput, error)
}

// ReportExporter publishes a finished report.
type ReportExporter interface {
	Export(ctx context.Context, input model.FinancialInput, report model.Report) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// UniformBackoff keeps the exponential schedule for rate-limit
	// failures instead of waiting MaxDelay.
	UniformBackoff bool
}
