package plaid

import (
	"context"
	"time"
)

// Fetcher reads balances and cash flow from a linked institution.
type Fetcher interface {
	GetBalances(ctx context.Context) ([]Balance, error)
	GetCashFlow(ctx context.Context, startDate, endDate time.Time) ([]Flow, error)
}
