package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FinancialInput is one user's statement as submitted for analysis.
type FinancialInput struct {
	UserID      string          `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Notes       string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	Assets      decimal.Decimal `json:"assets" yaml:"assets"`
	Liabilities decimal.Decimal `json:"liabilities" yaml:"liabilities"`
	Income      decimal.Decimal `json:"income" yaml:"income"`
	Expenses    decimal.Decimal `json:"expenses" yaml:"expenses"`
}

// NewFinancialInput builds an input from float amounts.
func NewFinancialInput(assets, liabilities, income, expenses float64) FinancialInput {
	return FinancialInput{
		Assets:      decimal.NewFromFloat(assets),
		Liabilities: decimal.NewFromFloat(liabilities),
		Income:      decimal.NewFromFloat(income),
		Expenses:    decimal.NewFromFloat(expenses),
	}
}

// Validate checks the numeric invariants of the statement.
func (f FinancialInput) Validate() error {
	switch {
	case !f.Assets.IsPositive():
		return fmt.Errorf("assets must be greater than 0, got %s", f.Assets)
	case f.Liabilities.IsNegative():
		return fmt.Errorf("liabilities must not be negative, got %s", f.Liabilities)
	case !f.Income.IsPositive():
		return fmt.Errorf("income must be greater than 0, got %s", f.Income)
	case f.Expenses.IsNegative():
		return fmt.Errorf("expenses must not be negative, got %s", f.Expenses)
	}
	return nil
}

// DebtRatio returns liabilities / assets, or 0 when assets is zero.
func (f FinancialInput) DebtRatio() float64 {
	if f.Assets.IsZero() {
		return 0
	}
	ratio, _ := f.Liabilities.Div(f.Assets).Float64()
	return ratio
}

// LiabilitiesExceedAssets reports an insolvent statement. It is accepted
// for analysis; callers may warn about it.
func (f FinancialInput) LiabilitiesExceedAssets() bool {
	return f.Liabilities.GreaterThan(f.Assets)
}

// Summary renders the figures the way they are presented to the model.
func (f FinancialInput) Summary() string {
	return fmt.Sprintf("assets=%s, liabilities=%s, income=%s, expenses=%s",
		f.Assets, f.Liabilities, f.Income, f.Expenses)
}
