// Package source loads financial statements from files and external
// institutions.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/ofx"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/plaid"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var (
	_ service.StatementSource = (*FileSource)(nil)
	_ service.StatementSource = (*OFXSource)(nil)
	_ service.StatementSource = (*PlaidSource)(nil)
)

// FileSource reads a YAML statement file.
type FileSource struct {
	Path string
}

// Load implements service.StatementSource. The file must hold exactly
// one statement.
func (s *FileSource) Load(ctx context.Context) (model.FinancialInput, error) {
	statements, err := ReadStatementFile(ctx, s.Path)
	if err != nil {
		return model.FinancialInput{}, err
	}
	if len(statements) != 1 {
		return model.FinancialInput{}, fmt.Errorf("%s: expected one statement, found %d", s.Path, len(statements))
	}
	return statements[0], nil
}

// ReadStatementFile reads every YAML document in path.
func ReadStatementFile(ctx context.Context, path string) ([]model.FinancialInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Clean(path)) // #nosec G304 -- user-supplied statement path
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() { _ = f.Close() }()

	statements, err := ReadStatements(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return statements, nil
}

// ReadStatements decodes a stream of YAML documents, one statement each.
func ReadStatements(r io.Reader) ([]model.FinancialInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var statements []model.FinancialInput
	for {
		var in model.FinancialInput
		err := dec.Decode(&in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode statement %d: %w", len(statements)+1, err)
		}
		statements = append(statements, in)
	}
	if len(statements) == 0 {
		return nil, fmt.Errorf("no statements found")
	}
	return statements, nil
}

// StatementFiles expands directories into the YAML files they contain.
// Plain file arguments are returned as given.
func StatementFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", p, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	return files, nil
}

// OFXSource derives a statement from an OFX/QFX export.
type OFXSource struct {
	Parser *ofx.Parser
	Path   string
	Notes  string
}

// Load implements service.StatementSource.
func (s *OFXSource) Load(ctx context.Context) (model.FinancialInput, error) {
	f, err := os.Open(filepath.Clean(s.Path)) // #nosec G304 -- user-supplied statement path
	if err != nil {
		return model.FinancialInput{}, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() { _ = f.Close() }()

	parser := s.Parser
	if parser == nil {
		parser = ofx.NewParser()
	}
	stmt, err := parser.ParseStatement(ctx, f)
	if err != nil {
		return model.FinancialInput{}, err
	}

	notes := s.Notes
	if notes == "" {
		notes = fmt.Sprintf("Derived from %d OFX accounts and %d transactions.", len(stmt.Accounts), stmt.Transactions)
	}
	return model.FinancialInput{
		Assets:      stmt.Assets(),
		Liabilities: stmt.Liabilities(),
		Income:      stmt.Income,
		Expenses:    stmt.Expenses,
		Notes:       notes,
	}, nil
}

// DefaultCashFlowWindow is how far back PlaidSource sums transactions.
const DefaultCashFlowWindow = 30 * 24 * time.Hour

// PlaidSource derives a statement from live account balances and recent
// transactions.
type PlaidSource struct {
	Fetcher plaid.Fetcher
	Now     func() time.Time
	UserID  string
	Window  time.Duration
}

// Load implements service.StatementSource.
func (s *PlaidSource) Load(ctx context.Context) (model.FinancialInput, error) {
	balances, err := s.Fetcher.GetBalances(ctx)
	if err != nil {
		return model.FinancialInput{}, fmt.Errorf("failed to load balances: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	window := s.Window
	if window <= 0 {
		window = DefaultCashFlowWindow
	}
	end := now()
	flows, err := s.Fetcher.GetCashFlow(ctx, end.Add(-window), end)
	if err != nil {
		return model.FinancialInput{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	in := SummarizePlaid(balances, flows)
	in.UserID = s.UserID
	return in, nil
}

// SummarizePlaid folds balances and flows into a statement. Depository
// and investment balances are assets; credit and loan balances are
// amounts owed. Pending transactions are ignored.
func SummarizePlaid(balances []plaid.Balance, flows []plaid.Flow) model.FinancialInput {
	in := model.FinancialInput{
		Assets:      decimal.Zero,
		Liabilities: decimal.Zero,
		Income:      decimal.Zero,
		Expenses:    decimal.Zero,
	}

	for _, b := range balances {
		amount := decimal.NewFromFloat(b.Current)
		switch b.Type {
		case "depository", "investment", "brokerage":
			if amount.IsPositive() {
				in.Assets = in.Assets.Add(amount)
			} else {
				in.Liabilities = in.Liabilities.Add(amount.Neg())
			}
		case "credit", "loan":
			in.Liabilities = in.Liabilities.Add(amount.Abs())
		}
	}

	posted := 0
	for _, f := range flows {
		if f.Pending {
			continue
		}
		posted++
		amount := decimal.NewFromFloat(f.Amount)
		if amount.IsNegative() {
			in.Income = in.Income.Add(amount.Neg())
		} else {
			in.Expenses = in.Expenses.Add(amount)
		}
	}

	in.Notes = fmt.Sprintf("Derived from %d Plaid accounts and %d posted transactions.", len(balances), posted)
	return in
}
