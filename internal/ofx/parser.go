// Package ofx derives balance and cash-flow totals from OFX/QFX bank and
// credit-card statements.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// AccountKind distinguishes the statement types.
type AccountKind string

// Account kinds.
const (
	KindBank       AccountKind = "bank"
	KindCreditCard AccountKind = "creditcard"
)

// Account is one statement's ledger balance.
type Account struct {
	Balance decimal.Decimal
	ID      string
	Kind    AccountKind
}

// Statement aggregates every statement in one OFX file.
type Statement struct {
	// Income is the sum of bank credits, excluding transfers.
	Income decimal.Decimal
	// Expenses is bank debits plus card charges, excluding transfers and
	// card payments.
	Expenses     decimal.Decimal
	Accounts     []Account
	Transactions int
}

// Assets is the sum of positive bank balances.
func (s *Statement) Assets() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Accounts {
		if a.Kind == KindBank && a.Balance.IsPositive() {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// Liabilities is the amount owed on cards plus any overdrawn bank balance.
func (s *Statement) Liabilities() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Accounts {
		if a.Balance.IsNegative() {
			total = total.Add(a.Balance.Neg())
		}
	}
	return total
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare tag line
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseStatement reads an OFX/QFX file into balance and cash-flow totals.
func (p *Parser) ParseStatement(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{Income: decimal.Zero, Expenses: decimal.Zero}

	for _, msg := range resp.Bank {
		bank, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		balance, err := toDecimal(&bank.BalAmt)
		if err != nil {
			slog.Warn("Skipping bank statement with unreadable balance",
				"account", bank.BankAcctFrom.AcctID,
				"error", err)
			continue
		}
		stmt.Accounts = append(stmt.Accounts, Account{
			ID:      string(bank.BankAcctFrom.AcctID),
			Kind:    KindBank,
			Balance: balance,
		})
		if bank.BankTranList != nil {
			p.addTransactions(stmt, bank.BankTranList.Transactions, KindBank)
		}
	}

	for _, msg := range resp.CreditCard {
		card, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		balance, err := toDecimal(&card.BalAmt)
		if err != nil {
			slog.Warn("Skipping credit card statement with unreadable balance",
				"account", card.CCAcctFrom.AcctID,
				"error", err)
			continue
		}
		stmt.Accounts = append(stmt.Accounts, Account{
			ID:      string(card.CCAcctFrom.AcctID),
			Kind:    KindCreditCard,
			Balance: balance,
		})
		if card.BankTranList != nil {
			p.addTransactions(stmt, card.BankTranList.Transactions, KindCreditCard)
		}
	}

	if len(stmt.Accounts) == 0 {
		return nil, fmt.Errorf("OFX file contains no bank or credit card statements")
	}

	slog.Info("Parsed OFX file",
		"accounts", len(stmt.Accounts),
		"transactions", stmt.Transactions)

	return stmt, nil
}

// addTransactions folds transactions into the statement totals. OFX
// amounts are negative for money leaving the account.
func (p *Parser) addTransactions(stmt *Statement, txns []ofxgo.Transaction, kind AccountKind) {
	for i := range txns {
		tx := &txns[i]
		amount, err := toDecimal(&tx.TrnAmt)
		if err != nil {
			slog.Warn("Skipping transaction with unreadable amount", "fitid", tx.FiTID, "error", err)
			continue
		}
		stmt.Transactions++

		trnType := fmt.Sprintf("%v", tx.TrnType)
		if trnType == "XFER" {
			continue
		}

		switch {
		case amount.IsNegative():
			stmt.Expenses = stmt.Expenses.Add(amount.Neg())
		case amount.IsPositive() && kind == KindBank:
			stmt.Income = stmt.Income.Add(amount)
		}
		// positive card amounts are payments or refunds, not income
	}
}

func toDecimal(a *ofxgo.Amount) (decimal.Decimal, error) {
	return decimal.NewFromString(a.FloatString(4))
}
