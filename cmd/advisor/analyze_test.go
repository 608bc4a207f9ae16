package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/compliance"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/config"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/retrieval"
)

// testViper is an offline configuration rooted in a temp dir.
func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	dir := t.TempDir()

	v := viper.New()
	config.SetDefaults(v)
	v.Set("llm.provider", "local")
	v.Set("audit.backend", "none")
	v.Set("retrieval.index_path", filepath.Join(dir, "index.db"))
	v.Set("database.path", filepath.Join(dir, "advisor.db"))
	v.Set("audit.path", filepath.Join(dir, "audit.log"))
	return v
}

func newTestApp(t *testing.T, v *viper.Viper) *app {
	t.Helper()
	a, err := newApp(context.Background(), v, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestStatementFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		flags   map[string]string
		want    model.FinancialInput
		wantErr bool
	}{
		{
			name:  "all figures",
			flags: map[string]string{"assets": "120000", "liabilities": "40000", "income": "15000", "expenses": "8000"},
			want:  model.NewFinancialInput(120000, 40000, 15000, 8000),
		},
		{
			name:  "thousands separators",
			flags: map[string]string{"assets": "1,200.50", "liabilities": "0", "income": " 3,000 ", "expenses": "10"},
			want:  model.NewFinancialInput(1200.5, 0, 3000, 10),
		},
		{
			name:    "missing figure",
			flags:   map[string]string{"assets": "100", "liabilities": "1", "income": "1"},
			wantErr: true,
			errMsg:  "--expenses is required",
		},
		{
			name:    "not a number",
			flags:   map[string]string{"assets": "lots", "liabilities": "1", "income": "1", "expenses": "1"},
			wantErr: true,
			errMsg:  "--assets is not a number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := analyzeCmd().Flags()
			for k, v := range tt.flags {
				require.NoError(t, flags.Set(k, v))
			}

			got, err := statementFromFlags(flags)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Assets.Equal(got.Assets))
			assert.True(t, tt.want.Liabilities.Equal(got.Liabilities))
			assert.True(t, tt.want.Income.Equal(got.Income))
			assert.True(t, tt.want.Expenses.Equal(got.Expenses))
		})
	}
}

func TestResolveStatement(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "statement.yaml")
	require.NoError(t, os.WriteFile(file, []byte("assets: 5000\nliabilities: 1200\nincome: 300\nexpenses: 100\nnotes: from file\n"), 0600))

	tests := []struct {
		name    string
		flags   map[string]string
		check   func(t *testing.T, in model.FinancialInput)
		errMsg  string
		wantErr bool
	}{
		{
			name:    "no source",
			wantErr: true,
			errMsg:  "no statement given",
		},
		{
			name:    "two sources",
			flags:   map[string]string{"file": file, "assets": "1"},
			wantErr: true,
			errMsg:  "exactly one source",
		},
		{
			name:  "file",
			flags: map[string]string{"file": file},
			check: func(t *testing.T, in model.FinancialInput) {
				t.Helper()
				assert.True(t, decimal.NewFromInt(5000).Equal(in.Assets))
				assert.Equal(t, "from file", in.Notes)
			},
		},
		{
			name:  "user id and notes override",
			flags: map[string]string{"file": file, "user-id": "u7", "notes": "override"},
			check: func(t *testing.T, in model.FinancialInput) {
				t.Helper()
				assert.Equal(t, "u7", in.UserID)
				assert.Equal(t, "override", in.Notes)
			},
		},
		{
			name:    "missing file",
			flags:   map[string]string{"file": filepath.Join(dir, "nope.yaml")},
			wantErr: true,
			errMsg:  "failed to open statement file",
		},
		{
			name:  "flags",
			flags: map[string]string{"assets": "10", "liabilities": "20", "income": "3", "expenses": "1"},
			check: func(t *testing.T, in model.FinancialInput) {
				t.Helper()
				assert.True(t, in.LiabilitiesExceedAssets())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := analyzeCmd().Flags()
			for k, v := range tt.flags {
				require.NoError(t, flags.Set(k, v))
			}

			got, err := resolveStatement(context.Background(), flags, testViper(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestResolveStatement_PlaidNotConfigured(t *testing.T) {
	t.Setenv("PLAID_CLIENT_ID", "")
	t.Setenv("PLAID_SECRET", "")
	t.Setenv("PLAID_ACCESS_TOKEN", "")

	flags := analyzeCmd().Flags()
	require.NoError(t, flags.Set("plaid", "true"))

	_, err := resolveStatement(context.Background(), flags, testViper(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plaid is not configured")
}

func TestAnalyzeOne(t *testing.T) {
	a := newTestApp(t, testViper(t))

	tests := []struct {
		name       string
		wantSource model.ResultSource
		input      model.FinancialInput
		exec       analysis.ExecContext
		wantWarn   bool
	}{
		{
			name:       "suspending caller uses non-blocking call",
			input:      model.NewFinancialInput(120000, 40000, 15000, 8000),
			exec:       execContext(false),
			wantSource: model.SourceNonBlocking,
		},
		{
			name:       "blocking caller",
			input:      model.NewFinancialInput(120000, 40000, 15000, 8000),
			exec:       execContext(true),
			wantSource: model.SourceBlocking,
		},
		{
			name:       "insolvent statement warns and continues",
			input:      model.NewFinancialInput(100, 250, 10, 5),
			exec:       execContext(false),
			wantSource: model.SourceNonBlocking,
			wantWarn:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			report, err := analyzeOne(context.Background(), a.engine, tt.input, tt.exec, &stderr)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSource, report.Analysis.Source)
			assert.Equal(t, compliance.DefaultDisclaimer, report.Analysis.Disclaimer)
			if tt.wantWarn {
				assert.Contains(t, stderr.String(), "Liabilities exceed assets")
			} else {
				assert.Empty(t, stderr.String())
			}
		})
	}
}

func TestAnalyzeOne_RejectsInvalidStatement(t *testing.T) {
	a := newTestApp(t, testViper(t))

	_, err := analyzeOne(context.Background(), a.engine, model.NewFinancialInput(0, 1, 1, 1), execContext(false), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "statement rejected")
}

func TestPrintReport(t *testing.T) {
	report := &model.Report{
		Summary:   "assets=100, liabilities=70, income=10, expenses=5",
		DebtRatio: 0.7,
		Analysis: model.AnalysisResult{
			Overview:        "High leverage",
			Recommendations: []string{"Pay card"},
			Risks:           []string{},
			Confidence:      0.6,
			Source:          model.SourceRule,
		},
	}

	var summary bytes.Buffer
	require.NoError(t, printReport(&summary, report, "summary"))
	assert.Contains(t, summary.String(), "High leverage")

	var out bytes.Buffer
	require.NoError(t, printReport(&out, report, "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 0.7, decoded["debt_ratio"])
	assert.True(t, strings.HasSuffix(out.String(), "}\n"))
}

func TestBuildRetriever(t *testing.T) {
	ctx := context.Background()

	t.Run("built-in documents", func(t *testing.T) {
		r, err := buildRetriever(testViper(t), discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &retrieval.KeywordRetriever{}, r)

		docs, err := r.Retrieve(ctx, "debt ratio", 5)
		require.NoError(t, err)
		assert.NotEmpty(t, docs)
	})

	t.Run("documents file", func(t *testing.T) {
		v := testViper(t)
		path := filepath.Join(t.TempDir(), "docs.txt")
		require.NoError(t, os.WriteFile(path, []byte("Keep an emergency fund.\n\nPay high-interest debt first.\n"), 0600))
		v.Set("retrieval.docs_file", path)

		r, err := buildRetriever(v, discardLogger())
		require.NoError(t, err)
		docs, err := r.Retrieve(ctx, "emergency", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"Keep an emergency fund."}, docs)
	})

	t.Run("persisted index wins", func(t *testing.T) {
		v := testViper(t)
		indexPath := v.GetString("retrieval.index_path")

		index, err := retrieval.OpenBoltIndex(indexPath)
		require.NoError(t, err)
		require.NoError(t, index.Save(retrieval.Ingest([]string{"Consolidate card balances at a lower rate."})))
		require.NoError(t, index.Close())

		r, err := buildRetriever(v, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &retrieval.VectorRetriever{}, r)

		docs, err := r.Retrieve(ctx, "card balances", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"Consolidate card balances at a lower rate."}, docs)
	})

	t.Run("empty index falls through", func(t *testing.T) {
		v := testViper(t)
		index, err := retrieval.OpenBoltIndex(v.GetString("retrieval.index_path"))
		require.NoError(t, err)
		require.NoError(t, index.Close())

		r, err := buildRetriever(v, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &retrieval.KeywordRetriever{}, r)
	})

	t.Run("missing documents file", func(t *testing.T) {
		v := testViper(t)
		v.Set("retrieval.docs_file", filepath.Join(t.TempDir(), "missing.txt"))
		_, err := buildRetriever(v, discardLogger())
		assert.Error(t, err)
	})
}

func TestNewApp_AuditBackends(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		v := testViper(t)
		v.Set("audit.backend", "file")
		a := newTestApp(t, v)

		_, err := analyzeOne(context.Background(), a.engine, model.NewFinancialInput(100, 10, 10, 5), execContext(true), &bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, a.Close())

		data, err := os.ReadFile(v.GetString("audit.path"))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "\n"))
	})

	t.Run("sqlite opens the database", func(t *testing.T) {
		v := testViper(t)
		v.Set("audit.backend", "sqlite")
		a := newTestApp(t, v)
		require.NotNil(t, a.db)

		version, err := a.db.SchemaVersion(context.Background())
		require.NoError(t, err)
		assert.Positive(t, version)
	})

	t.Run("unknown", func(t *testing.T) {
		v := testViper(t)
		v.Set("audit.backend", "kafka")
		_, err := newApp(context.Background(), v, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("unknown provider", func(t *testing.T) {
		v := testViper(t)
		v.Set("llm.provider", "carrier-pigeon")
		_, err := newApp(context.Background(), v, false)
		assert.Error(t, err)
	})
}

func TestExecContext(t *testing.T) {
	assert.Equal(t, analysis.DefaultExecContext(), execContext(false))
	assert.Equal(t, analysis.ExecContext{InSchedulerLoop: true}, execContext(true))
}
