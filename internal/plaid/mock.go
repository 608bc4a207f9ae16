package plaid

import (
	"context"
	"sync"
	"time"
)

// MockClient is a Fetcher for tests.
type MockClient struct {
	GetBalancesFn func(ctx context.Context) ([]Balance, error)
	GetCashFlowFn func(ctx context.Context, startDate, endDate time.Time) ([]Flow, error)

	CashFlowCalls    []CashFlowCall
	GetBalancesCalls int
	mu               sync.Mutex
}

// CashFlowCall records the parameters of a GetCashFlow call.
type CashFlowCall struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{CashFlowCalls: []CashFlowCall{}}
}

// GetBalances implements Fetcher.
func (m *MockClient) GetBalances(ctx context.Context) ([]Balance, error) {
	m.mu.Lock()
	m.GetBalancesCalls++
	m.mu.Unlock()

	if m.GetBalancesFn != nil {
		return m.GetBalancesFn(ctx)
	}
	return []Balance{}, nil
}

// GetCashFlow implements Fetcher.
func (m *MockClient) GetCashFlow(ctx context.Context, startDate, endDate time.Time) ([]Flow, error) {
	m.mu.Lock()
	m.CashFlowCalls = append(m.CashFlowCalls, CashFlowCall{StartDate: startDate, EndDate: endDate})
	m.mu.Unlock()

	if m.GetCashFlowFn != nil {
		return m.GetCashFlowFn(ctx, startDate, endDate)
	}
	return []Flow{}, nil
}
