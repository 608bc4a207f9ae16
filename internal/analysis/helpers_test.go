package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/llm"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

const validResponse = `{"overview":"ok","recommendations":["a"],"risks":[],"confidence":0.8}`

func fastGateway(b llm.Backend) *llm.Gateway {
	return llm.NewGateway(b, llm.WithRetryOptions(service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}))
}

func sampleInput() model.FinancialInput {
	return model.NewFinancialInput(120000, 40000, 15000, 8000)
}

func newRecorder() (*tracetest.SpanRecorder, *trace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, trace.NewTracerProvider(trace.WithSpanProcessor(sr))
}

func spanNames(sr *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	return names
}

type stubRetriever struct {
	err     error
	docs    []string
	queries []string
	mu      sync.Mutex
}

func (r *stubRetriever) Retrieve(_ context.Context, query string, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	if limit < len(r.docs) {
		return r.docs[:limit], nil
	}
	return r.docs, nil
}

type countingHook struct {
	calls atomic.Int32
}

func (h *countingHook) Apply(result model.AnalysisResult) model.AnalysisResult {
	h.calls.Add(1)
	result.Disclaimer = "test disclaimer"
	return result
}

type mockAuditSink struct {
	mock.Mock
}

func (m *mockAuditSink) Record(ctx context.Context, summary string, result model.AnalysisResult) error {
	args := m.Called(ctx, summary, result)
	return args.Error(0)
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, string, model.AnalysisResult) error { return nil }

type failingPromptBuilder struct{ err error }

func (b failingPromptBuilder) BuildAnalysisPrompt(model.FinancialInput, []string) (string, error) {
	return "", b.err
}
