package sheets

import (
	"context"
	"sync"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// MockExporter is a mock implementation of service.ReportExporter for testing.
type MockExporter struct {
	ExportFunc func(ctx context.Context, input model.FinancialInput, report model.Report) error
	Calls      []ExportCall
	mu         sync.Mutex
}

// ExportCall records a single call to Export.
type ExportCall struct {
	Error  error
	Input  model.FinancialInput
	Report model.Report
}

// Export implements service.ReportExporter.
func (m *MockExporter) Export(ctx context.Context, input model.FinancialInput, report model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.ExportFunc != nil {
		err = m.ExportFunc(ctx, input, report)
	}
	m.Calls = append(m.Calls, ExportCall{Input: input, Report: report, Error: err})
	return err
}

// GetCalls returns a copy of all export calls.
func (m *MockExporter) GetCalls() []ExportCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ExportCall, len(m.Calls))
	copy(calls, m.Calls)
	return calls
}
