package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/config"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/plaid"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/sheets"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/source"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one financial statement",
		Long: `Analyze a single financial statement and print a report.

The statement comes from exactly one of:
  - the --assets/--liabilities/--income/--expenses flags
  - a YAML statement file (--file)
  - an OFX/QFX export (--ofx)
  - the linked Plaid account (--plaid)

Examples:
  # Analyze figures given on the command line
  advisor analyze --assets 120000 --liabilities 40000 --income 15000 --expenses 8000

  # Analyze a YAML statement and print JSON
  advisor analyze --file statement.yaml --output json

  # Derive the statement from a bank export and append it to Google Sheets
  advisor analyze --ofx checking.qfx --export-sheets

  # Never wait on a suspended request (single-threaded callers)
  advisor analyze --file statement.yaml --blocking`,
		RunE: runAnalyze,
	}

	addStatementFlags(cmd.Flags())
	cmd.Flags().String("file", "", "YAML statement file")
	cmd.Flags().String("ofx", "", "OFX/QFX file to derive the statement from")
	cmd.Flags().Bool("plaid", false, "Derive the statement from the linked Plaid account")
	cmd.Flags().StringP("output", "o", "summary", "Output format (summary, json)")
	cmd.Flags().Bool("export-sheets", false, "Append the report to Google Sheets")
	cmd.Flags().Bool("blocking", false, "Run as a single-threaded caller: no streaming, no awaited requests")

	return cmd
}

func addStatementFlags(flags *pflag.FlagSet) {
	flags.String("assets", "", "Total assets")
	flags.String("liabilities", "", "Total liabilities")
	flags.String("income", "", "Monthly income")
	flags.String("expenses", "", "Monthly expenses")
	flags.String("user-id", "", "Optional user identifier")
	flags.String("notes", "", "Optional free-form notes")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context(), "No report was produced.")
	defer stop()

	output, _ := cmd.Flags().GetString("output")
	if output != "summary" && output != "json" {
		return common.NewUserError(fmt.Sprintf("unknown output format %q (use summary or json)", output), common.ErrInvalidInput)
	}

	input, err := resolveStatement(ctx, cmd.Flags(), viper.GetViper())
	if err != nil {
		return err
	}

	a, err := newApp(ctx, viper.GetViper(), false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			slog.Warn("Failed to release resources", "error", cerr)
		}
	}()

	blocking, _ := cmd.Flags().GetBool("blocking")
	report, err := analyzeOne(ctx, a.engine, input, execContext(blocking), cmd.ErrOrStderr())
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	if err := printReport(cmd.OutOrStdout(), report, output); err != nil {
		return err
	}

	if export, _ := cmd.Flags().GetBool("export-sheets"); export {
		if err := exportToSheets(ctx, viper.GetViper(), input, *report); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Report appended to Google Sheets"))
	}
	return nil
}

// execContext maps --blocking onto a caller that runs its own event
// loop and so can neither suspend nor await a pending request.
func execContext(blocking bool) analysis.ExecContext {
	if blocking {
		return analysis.ExecContext{AllowSuspend: false, InSchedulerLoop: true}
	}
	return analysis.DefaultExecContext()
}

// analyzeOne runs the engine and reports progress and the chain path on w.
func analyzeOne(ctx context.Context, engine *analysis.Engine, input model.FinancialInput, exec analysis.ExecContext, w io.Writer) (*model.Report, error) {
	if input.LiabilitiesExceedAssets() {
		_, _ = fmt.Fprintln(w, cli.FormatWarning("Liabilities exceed assets; the analysis will continue."))
	}

	result, err := engine.Analyze(ctx, input, analysis.Options{
		Exec: exec,
		ProgressFunc: func(stage string, percent int) {
			slog.Debug("Analysis progress", "stage", stage, "percent", percent)
		},
	})
	if err != nil {
		return nil, common.NewUserError("statement rejected", err)
	}

	path := make([]string, 0, len(result.Transitions)+1)
	for _, t := range result.Transitions {
		path = append(path, t.From.String())
	}
	path = append(path, result.Final.String())
	slog.Info("Analysis complete",
		"source", result.Report.Analysis.Source,
		"path", strings.Join(path, " -> "))

	return &result.Report, nil
}

func printReport(w io.Writer, report *model.Report, output string) error {
	formatter := analysis.NewCLIFormatter()
	if output == "json" {
		out, err := formatter.FormatJSON(report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, out)
		return err
	}
	_, err := fmt.Fprintln(w, formatter.FormatSummary(report))
	return err
}

// resolveStatement reads the statement from the single source the flags
// name.
func resolveStatement(ctx context.Context, flags *pflag.FlagSet, v *viper.Viper) (model.FinancialInput, error) {
	file, _ := flags.GetString("file")
	ofxPath, _ := flags.GetString("ofx")
	usePlaid, _ := flags.GetBool("plaid")
	userID, _ := flags.GetString("user-id")
	notes, _ := flags.GetString("notes")

	sources := 0
	for _, set := range []bool{file != "", ofxPath != "", usePlaid, hasFigureFlags(flags)} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return model.FinancialInput{}, common.NewUserError(
			"no statement given: use --assets/--liabilities/--income/--expenses, --file, --ofx or --plaid", common.ErrInvalidInput)
	case sources > 1:
		return model.FinancialInput{}, common.NewUserError("give the statement from exactly one source", common.ErrInvalidInput)
	}

	var (
		input model.FinancialInput
		err   error
	)
	switch {
	case file != "":
		input, err = (&source.FileSource{Path: file}).Load(ctx)
	case ofxPath != "":
		input, err = (&source.OFXSource{Path: ofxPath, Notes: notes}).Load(ctx)
	case usePlaid:
		input, err = loadPlaid(ctx, v, userID)
	default:
		input, err = statementFromFlags(flags)
	}
	if err != nil {
		return model.FinancialInput{}, err
	}

	if userID != "" {
		input.UserID = userID
	}
	if notes != "" {
		input.Notes = notes
	}
	return input, nil
}

var figureFlags = []string{"assets", "liabilities", "income", "expenses"}

func hasFigureFlags(flags *pflag.FlagSet) bool {
	for _, name := range figureFlags {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

func statementFromFlags(flags *pflag.FlagSet) (model.FinancialInput, error) {
	values := make([]decimal.Decimal, len(figureFlags))
	for i, name := range figureFlags {
		raw, _ := flags.GetString(name)
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		if raw == "" {
			return model.FinancialInput{}, common.NewUserError(fmt.Sprintf("--%s is required", name), common.ErrInvalidInput)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return model.FinancialInput{}, common.NewUserError(fmt.Sprintf("--%s is not a number: %q", name, raw), common.ErrInvalidInput)
		}
		values[i] = d
	}
	return model.FinancialInput{
		Assets:      values[0],
		Liabilities: values[1],
		Income:      values[2],
		Expenses:    values[3],
	}, nil
}

func loadPlaid(ctx context.Context, v *viper.Viper, userID string) (model.FinancialInput, error) {
	cfg, err := config.LoadPlaidConfig(v)
	if err != nil {
		return model.FinancialInput{}, common.NewUserError("plaid is not configured", err)
	}
	client, err := plaid.NewClient(*cfg)
	if err != nil {
		return model.FinancialInput{}, fmt.Errorf("failed to create Plaid client: %w", err)
	}
	return (&source.PlaidSource{Fetcher: client, UserID: userID}).Load(ctx)
}

func exportToSheets(ctx context.Context, v *viper.Viper, input model.FinancialInput, report model.Report) error {
	cfg, err := config.LoadSheetsConfig(v)
	if err != nil {
		return common.NewUserError("google sheets is not configured; run 'advisor auth sheets'", err)
	}
	exporter, err := sheets.NewExporter(ctx, *cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets exporter: %w", err)
	}
	if err := exporter.Export(ctx, input, report); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	if cfg.SpreadsheetID == "" {
		slog.Info("Created spreadsheet; set sheets.spreadsheet_id to reuse it", "spreadsheet_id", exporter.SpreadsheetID())
	}
	return nil
}
