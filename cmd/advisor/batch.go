package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/source"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Analyze many statement files",
		Long: `Analyze every statement in the given YAML files and directories.

A file may hold several statements separated by '---'. Directories are
searched (non-recursively) for .yaml and .yml files. Each statement
produces one JSON line on the output with its file, position, report
or error.

Examples:
  # Analyze a directory of statements, four at a time
  advisor batch statements/ --concurrency 4

  # Write results to a file
  advisor batch a.yaml b.yaml --out reports.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().IntP("concurrency", "c", 2, "Number of statements analyzed at once")
	cmd.Flags().String("out", "", "Write JSON lines to this file instead of stdout")
	cmd.Flags().Bool("blocking", false, "Run as a single-threaded caller: no streaming, no awaited requests")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")

	return cmd
}

// batchItem is one statement of a batch.
type batchItem struct {
	File  string
	Input model.FinancialInput
	Index int
}

// batchResult is one output line.
type batchResult struct {
	Report *model.Report `json:"report,omitempty"`
	File   string        `json:"file"`
	Error  string        `json:"error,omitempty"`
	Index  int           `json:"index"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := handler.HandleInterrupts(cmd.Context(), "Finished statements were written; the rest were skipped.")
	defer stop()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency < 1 {
		return common.NewUserError("--concurrency must be at least 1", common.ErrInvalidInput)
	}

	items, err := collectBatch(ctx, args)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return common.NewUserError("no statements found", common.ErrInvalidInput)
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(filepath.Clean(path)) // #nosec G304 -- user-supplied output path
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
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

	var progress io.Writer
	if hide, _ := cmd.Flags().GetBool("no-progress"); !hide {
		progress = cmd.ErrOrStderr()
	}
	blocking, _ := cmd.Flags().GetBool("blocking")

	results, err := analyzeBatch(ctx, a.engine, items, concurrency, execContext(blocking), progress)
	if err != nil && !handler.WasInterrupted() {
		return err
	}

	failed, err := writeResults(out, results)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(
		fmt.Sprintf("Analyzed %d statements, %d rejected", len(results)-failed, failed)))
	return nil
}

func collectBatch(ctx context.Context, paths []string) ([]batchItem, error) {
	files, err := source.StatementFiles(paths)
	if err != nil {
		return nil, err
	}

	var items []batchItem
	for _, file := range files {
		statements, err := source.ReadStatementFile(ctx, file)
		if err != nil {
			return nil, err
		}
		for i, in := range statements {
			items = append(items, batchItem{File: file, Index: i, Input: in})
		}
	}
	return items, nil
}

// analyzeBatch analyzes items with at most concurrency in flight. Rejected
// statements become error lines; only cancellation stops the batch, and
// statements not started by then are left out of the results.
func analyzeBatch(ctx context.Context, engine *analysis.Engine, items []batchItem, concurrency int, exec analysis.ExecContext, progress io.Writer) ([]batchResult, error) {
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(len(items),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Analyzing statements...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprintln(progress)
			}),
		)
	}

	results := make([]batchResult, len(items))
	started := make([]bool, len(items))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			res := batchResult{File: item.File, Index: item.Index}
			out, err := engine.Analyze(gctx, item.Input, analysis.Options{Exec: exec})
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Report = &out.Report
			}
			results[i] = res

			done.Add(1)
			if bar != nil {
				_ = bar.Add(1)
			}
			return gctx.Err()
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	slog.Debug("Batch finished", "analyzed", done.Load(), "total", len(items))

	kept := results[:0]
	for i, r := range results {
		if started[i] {
			kept = append(kept, r)
		}
	}
	return kept, err
}

func writeResults(w io.Writer, results []batchResult) (failed int, err error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return failed, fmt.Errorf("failed to write result: %w", err)
		}
	}
	return failed, nil
}
