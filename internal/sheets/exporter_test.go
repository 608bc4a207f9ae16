package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// fakeSheets serves the subset of the Sheets v4 API the exporter calls.
type fakeSheets struct {
	titles       map[string][]string
	rows         [][]any
	failAppends  int
	failStatus   int
	appendCalls  int
	headerWrites int
	creates      int
	mu           sync.Mutex
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{titles: map[string][]string{}}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		var req sheets.Spreadsheet
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.creates++
		id := fmt.Sprintf("created-%d", f.creates)
		for _, s := range req.Sheets {
			f.titles[id] = append(f.titles[id], s.Properties.Title)
		}
		writeJSON(w, sheets.Spreadsheet{SpreadsheetId: id, SpreadsheetUrl: "https://sheets.example/" + id})

	case strings.HasSuffix(path, ":batchUpdate"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/v4/spreadsheets/"), ":batchUpdate")
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		for _, rq := range req.Requests {
			f.titles[id] = append(f.titles[id], rq.AddSheet.Properties.Title)
		}
		writeJSON(w, sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: id})

	case strings.Contains(path, "/values/"):
		f.serveValues(w, r)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/"):
		id := strings.TrimPrefix(path, "/v4/spreadsheets/")
		titles, ok := f.titles[id]
		if !ok {
			writeAPIError(w, http.StatusNotFound, "spreadsheet not found")
			return
		}
		doc := sheets.Spreadsheet{SpreadsheetId: id}
		for _, title := range titles {
			doc.Sheets = append(doc.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
		}
		writeJSON(w, doc)

	default:
		writeAPIError(w, http.StatusNotFound, "unexpected request "+r.Method+" "+path)
	}
}

func (f *fakeSheets) serveValues(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.appendCalls++
		if f.failAppends > 0 {
			f.failAppends--
			writeAPIError(w, f.failStatus, "append rejected")
			return
		}
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.rows = append(f.rows, vr.Values...)
		writeJSON(w, sheets.AppendValuesResponse{})

	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.headerWrites++
		f.rows = append(vr.Values, f.rows...)
		writeJSON(w, sheets.UpdateValuesResponse{})

	case r.Method == http.MethodGet:
		vr := sheets.ValueRange{}
		if len(f.rows) > 0 {
			vr.Values = f.rows[:1]
		}
		writeJSON(w, vr)

	default:
		writeAPIError(w, http.StatusNotFound, "unexpected values request")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, code, msg)
}

func newTestExporter(t *testing.T, fake *fakeSheets, cfg Config) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	exp := NewExporterWithService(svc, cfg, nil)
	exp.now = func() time.Time { return time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC) }
	exp.retry.InitialDelay = time.Millisecond
	exp.retry.MaxDelay = time.Millisecond
	return exp
}

func testExport() (model.FinancialInput, model.Report) {
	input := model.NewFinancialInput(100000, 35000, 9000, 6000)
	input.UserID = "user-1"
	report := model.Report{
		Summary:   input.Summary(),
		DebtRatio: 0.35,
		Analysis: model.AnalysisResult{
			Overview:         "Manageable debt",
			Recommendations:  []string{"Build an emergency fund", "Refinance the car loan"},
			Risks:            []string{"Variable rate"},
			Confidence:       0.82,
			Disclaimer:       "Informational only",
			NeedsLegalReview: false,
			Source:           model.SourceBlocking,
		},
	}
	return input, report
}

func TestExporter_CreatesSpreadsheetAndWritesHeader(t *testing.T) {
	fake := newFakeSheets()
	cfg := DefaultConfig()
	exp := newTestExporter(t, fake, cfg)
	input, report := testExport()

	require.NoError(t, exp.Export(context.Background(), input, report))
	require.NoError(t, exp.Export(context.Background(), input, report))

	assert.Equal(t, "created-1", exp.SpreadsheetID())
	assert.Equal(t, 1, fake.creates, "spreadsheet is created once")
	assert.Equal(t, 1, fake.headerWrites, "header is written once")
	require.Len(t, fake.rows, 3)

	header := fake.rows[0]
	require.Len(t, header, len(Header))
	assert.Equal(t, "Timestamp", header[0])
	assert.Equal(t, "Disclaimer", header[len(header)-1])

	row := fake.rows[1]
	require.Len(t, row, len(Header))
	assert.Equal(t, "2025-03-01T09:30:00Z", row[0])
	assert.Equal(t, "user-1", row[1])
	assert.Equal(t, 100000.0, row[2])
	assert.Equal(t, 35000.0, row[3])
	assert.Equal(t, 0.35, row[6])
	assert.Equal(t, "Manageable debt", row[7])
	assert.Equal(t, "1. Build an emergency fund\n2. Refinance the car loan", row[8])
	assert.Equal(t, "1. Variable rate", row[9])
	assert.Equal(t, 0.82, row[10])
	assert.Equal(t, "blocking", row[11])
	assert.Equal(t, false, row[12])
	assert.Equal(t, "Informational only", row[13])
}

func TestExporter_ExistingSpreadsheetGetsSheet(t *testing.T) {
	fake := newFakeSheets()
	fake.titles["existing"] = []string{"Sheet1"}

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	exp := newTestExporter(t, fake, cfg)
	input, report := testExport()

	require.NoError(t, exp.Export(context.Background(), input, report))
	assert.Equal(t, 0, fake.creates)
	assert.Equal(t, []string{"Sheet1", "Reports"}, fake.titles["existing"])
	assert.Len(t, fake.rows, 2)
}

func TestExporter_Errors(t *testing.T) {
	input, report := testExport()

	t.Run("rate limit is retried", func(t *testing.T) {
		fake := newFakeSheets()
		fake.failAppends = 2
		fake.failStatus = http.StatusTooManyRequests
		cfg := DefaultConfig()
		exp := newTestExporter(t, fake, cfg)

		require.NoError(t, exp.Export(context.Background(), input, report))
		assert.Equal(t, 3, fake.appendCalls)
		assert.Len(t, fake.rows, 2)
	})

	t.Run("client error is permanent", func(t *testing.T) {
		fake := newFakeSheets()
		fake.failAppends = 5
		fake.failStatus = http.StatusForbidden
		exp := newTestExporter(t, fake, DefaultConfig())

		err := exp.Export(context.Background(), input, report)
		require.Error(t, err)
		assert.Equal(t, 1, fake.appendCalls)
		assert.False(t, errors.Is(err, common.ErrMaxRetries))
	})

	t.Run("retries exhausted", func(t *testing.T) {
		fake := newFakeSheets()
		fake.failAppends = 5
		fake.failStatus = http.StatusServiceUnavailable
		exp := newTestExporter(t, fake, DefaultConfig())

		err := exp.Export(context.Background(), input, report)
		assert.ErrorIs(t, err, common.ErrMaxRetries)
		assert.Equal(t, 3, fake.appendCalls)
	})

	t.Run("unknown spreadsheet", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SpreadsheetID = "missing"
		exp := newTestExporter(t, newFakeSheets(), cfg)

		err := exp.Export(context.Background(), input, report)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to access spreadsheet missing")
	})

	t.Run("nil context", func(t *testing.T) {
		exp := newTestExporter(t, newFakeSheets(), DefaultConfig())
		//nolint:staticcheck // nil context is the case under test
		assert.Error(t, exp.Export(nil, input, report))
	})
}

func TestNewExporter_InvalidConfig(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{}, nil)
	assert.ErrorContains(t, err, "invalid config")
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "", numbered(nil))
	assert.Equal(t, "1. a", numbered([]string{"a"}))
	assert.Equal(t, "1. a\n2. b", numbered([]string{"a", "b"}))
}

func TestMockExporter(t *testing.T) {
	mock := &MockExporter{}
	input, report := testExport()

	require.NoError(t, mock.Export(context.Background(), input, report))

	boom := errors.New("boom")
	mock.ExportFunc = func(context.Context, model.FinancialInput, model.Report) error { return boom }
	assert.ErrorIs(t, mock.Export(context.Background(), input, report), boom)

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "user-1", calls[0].Input.UserID)
	assert.NoError(t, calls[0].Error)
	assert.ErrorIs(t, calls[1].Error, boom)
}
