package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var _ service.ReportExporter = (*Exporter)(nil)

// Exporter appends one row per report to a Google Sheet.
type Exporter struct {
	service       *sheets.Service
	logger        *slog.Logger
	now           func() time.Time
	config        Config
	spreadsheetID string
	retry         service.RetryOptions
	mu            sync.Mutex
}

// NewExporter creates an exporter authenticated from config.
func NewExporter(ctx context.Context, config Config, logger *slog.Logger) (*Exporter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewExporterWithService(srv, config, logger), nil
}

// NewExporterWithService wraps an existing Sheets service. Authentication
// settings in config are ignored.
func NewExporterWithService(srv *sheets.Service, config Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SheetName == "" {
		config.SheetName = DefaultConfig().SheetName
	}
	return &Exporter{
		service:       srv,
		logger:        logger,
		now:           time.Now,
		config:        config,
		spreadsheetID: config.SpreadsheetID,
		retry: service.RetryOptions{
			MaxAttempts:  config.RetryAttempts,
			InitialDelay: config.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Export appends the report to the configured sheet, writing the header
// first when the sheet is empty.
func (e *Exporter) Export(ctx context.Context, input model.FinancialInput, report model.Report) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	spreadsheetID, err := e.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if err := common.WithRetry(ctx, func() error {
		return classify(e.ensureHeader(ctx, spreadsheetID))
	}, e.retry); err != nil {
		return fmt.Errorf("failed to prepare sheet: %w", err)
	}

	row := reportRow(input, report, e.now())
	err = common.WithRetry(ctx, func() error {
		_, appendErr := e.service.Spreadsheets.Values.Append(spreadsheetID, e.columns(), &sheets.ValueRange{
			Values: [][]any{row},
		}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return classify(appendErr)
	}, e.retry)
	if err != nil {
		return fmt.Errorf("failed to append report: %w", err)
	}

	e.logger.Info("report exported",
		"spreadsheet_id", spreadsheetID,
		"sheet", e.config.SheetName,
		"user_id", input.UserID)
	return nil
}

// SpreadsheetID returns the spreadsheet reports are written to, which is
// empty until the first export creates one.
func (e *Exporter) SpreadsheetID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spreadsheetID
}

func (e *Exporter) columns() string {
	return fmt.Sprintf("'%s'!A:N", e.config.SheetName)
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := OAuth2Config{ClientID: config.ClientID, ClientSecret: config.ClientSecret}.endpoint("")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet returns the configured spreadsheet, creating one
// with the report sheet on first use. Callers hold e.mu.
func (e *Exporter) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if e.spreadsheetID != "" {
		return e.spreadsheetID, nil
	}

	created, err := e.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    e.config.SpreadsheetName,
			TimeZone: e.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: e.config.SheetName}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	e.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	e.spreadsheetID = created.SpreadsheetId
	return e.spreadsheetID, nil
}

// ensureHeader adds the report sheet if the spreadsheet lacks it and
// writes the header row into an empty sheet.
func (e *Exporter) ensureHeader(ctx context.Context, spreadsheetID string) error {
	doc, err := e.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to access spreadsheet %s: %w", spreadsheetID, err)
	}

	found := false
	for _, s := range doc.Sheets {
		if s.Properties != nil && s.Properties.Title == e.config.SheetName {
			found = true
			break
		}
	}
	if !found {
		_, err = e.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: e.config.SheetName},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("unable to add sheet %q: %w", e.config.SheetName, err)
		}
	}

	headerRange := fmt.Sprintf("'%s'!A1:N1", e.config.SheetName)
	existing, err := e.service.Spreadsheets.Values.Get(spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to read header: %w", err)
	}
	if len(existing.Values) > 0 {
		return nil
	}

	_, err = e.service.Spreadsheets.Values.Update(spreadsheetID, headerRange, &sheets.ValueRange{
		Values: [][]any{Header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}
	return nil
}

// classify maps Sheets API failures onto the retry policy: 429 waits for
// the rate limit, other client errors are permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, err), Retryable: true}
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	default:
		return err
	}
}
