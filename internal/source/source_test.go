package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/plaid"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadStatements(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantErr   string
	}{
		{
			name:      "single statement",
			input:     "assets: 120000\nliabilities: 40000\nincome: 15000\nexpenses: 8000\n",
			wantCount: 1,
		},
		{
			name:      "multiple documents",
			input:     "assets: 1\nliabilities: 0\nincome: 1\nexpenses: 0\n---\nassets: 2\nliabilities: 1\nincome: 2\nexpenses: 1\n",
			wantCount: 2,
		},
		{
			name:    "unknown field",
			input:   "assets: 1\ndebts: 5\n",
			wantErr: "debts",
		},
		{
			name:    "not a number",
			input:   "assets: lots\n",
			wantErr: "statement 1",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "no statements found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadStatements(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "me.yaml", `user_id: u-1
assets: 120000.50
liabilities: 40000
income: 15000
expenses: 8000
notes: two cards
`)

	in, err := (&FileSource{Path: path}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", in.UserID)
	assert.Equal(t, "two cards", in.Notes)
	assertDecimal(t, "120000.50", in.Assets)
	assertDecimal(t, "40000", in.Liabilities)
	assertDecimal(t, "15000", in.Income)
	assertDecimal(t, "8000", in.Expenses)

	multi := writeFile(t, dir, "multi.yaml", "assets: 1\n---\nassets: 2\n")
	_, err = (&FileSource{Path: multi}).Load(context.Background())
	assert.ErrorContains(t, err, "expected one statement, found 2")

	_, err = (&FileSource{Path: filepath.Join(dir, "missing.yaml")}).Load(context.Background())
	assert.Error(t, err)
}

func TestStatementFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "assets: 1\n")
	b := writeFile(t, dir, "b.YML", "assets: 1\n")
	writeFile(t, dir, "notes.txt", "ignore me")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0750))

	other := writeFile(t, t.TempDir(), "c.txt", "assets: 1\n")

	files, err := StatementFiles([]string{dir, other})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, other}, files)

	_, err = StatementFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

const bankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250702080000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>011000015
<ACCTID>88120
<ACCTTYPE>SAVINGS
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250601000000[0:GMT]
<DTEND>20250630000000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250611000000[0:GMT]
<TRNAMT>-310.75
<FITID>S-0611
<NAME>PHARMACY
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250628000000[0:GMT]
<TRNAMT>5200.00
<FITID>S-0628
<NAME>MONTHLY WAGES
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>6400.00
<DTASOF>20250630000000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestOFXSource_Load(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bank.ofx", bankOFX)

	in, err := (&OFXSource{Path: path}).Load(context.Background())
	require.NoError(t, err)
	assertDecimal(t, "6400", in.Assets)
	assertDecimal(t, "0", in.Liabilities)
	assertDecimal(t, "5200", in.Income)
	assertDecimal(t, "310.75", in.Expenses)
	assert.Equal(t, "Derived from 1 OFX accounts and 2 transactions.", in.Notes)
	assert.NoError(t, in.Validate())

	in, err = (&OFXSource{Path: path, Notes: "custom"}).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "custom", in.Notes)

	_, err = (&OFXSource{Path: writeFile(t, t.TempDir(), "bad.ofx", "garbage")}).Load(context.Background())
	assert.Error(t, err)
}

func TestSummarizePlaid(t *testing.T) {
	balances := []plaid.Balance{
		{AccountID: "chk", Type: "depository", Current: 2500.25},
		{AccountID: "brk", Type: "investment", Current: 10000},
		{AccountID: "cc", Type: "credit", Current: 750},
		{AccountID: "car", Type: "loan", Current: 12000},
		{AccountID: "odd", Type: "other", Current: 99},
	}
	flows := []plaid.Flow{
		{ID: "pay", Amount: -4000},
		{ID: "rent", Amount: 1800},
		{ID: "food", Amount: 200.5},
		{ID: "pending", Amount: 999, Pending: true},
	}

	in := SummarizePlaid(balances, flows)
	assertDecimal(t, "12500.25", in.Assets)
	assertDecimal(t, "12750", in.Liabilities)
	assertDecimal(t, "4000", in.Income)
	assertDecimal(t, "2000.5", in.Expenses)
	assert.Equal(t, "Derived from 5 Plaid accounts and 3 posted transactions.", in.Notes)
}

func TestPlaidSource_Load(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetBalancesFn = func(context.Context) ([]plaid.Balance, error) {
		return []plaid.Balance{{Type: "depository", Current: 500}}, nil
	}
	mock.GetCashFlowFn = func(context.Context, time.Time, time.Time) ([]plaid.Flow, error) {
		return []plaid.Flow{{Amount: -100}, {Amount: 40}}, nil
	}

	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	src := &PlaidSource{Fetcher: mock, Now: func() time.Time { return now }, UserID: "u-9"}

	in, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-9", in.UserID)
	assertDecimal(t, "500", in.Assets)
	assertDecimal(t, "100", in.Income)
	assertDecimal(t, "40", in.Expenses)

	require.Len(t, mock.CashFlowCalls, 1)
	assert.Equal(t, now, mock.CashFlowCalls[0].EndDate)
	assert.Equal(t, now.Add(-DefaultCashFlowWindow), mock.CashFlowCalls[0].StartDate)
}

func TestPlaidSource_Errors(t *testing.T) {
	mock := plaid.NewMockClient()
	mock.GetBalancesFn = func(context.Context) ([]plaid.Balance, error) {
		return nil, errors.New("item login required")
	}
	_, err := (&PlaidSource{Fetcher: mock}).Load(context.Background())
	assert.ErrorContains(t, err, "failed to load balances")
	assert.Empty(t, mock.CashFlowCalls)

	mock = plaid.NewMockClient()
	mock.GetCashFlowFn = func(context.Context, time.Time, time.Time) ([]plaid.Flow, error) {
		return nil, errors.New("timeout")
	}
	_, err = (&PlaidSource{Fetcher: mock}).Load(context.Background())
	assert.ErrorContains(t, err, "failed to load transactions")
}
