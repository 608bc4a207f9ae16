package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/cli"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/tui"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/tui/themes"
)

func formCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Enter a statement interactively and analyze it",
		Long: `Open a terminal form for the statement figures, then analyze it.

Keys: tab/down next field, shift+tab/up previous field, enter on the last
field or ctrl+s to submit, esc to cancel.`,
		RunE: runForm,
	}

	cmd.Flags().String("theme", "", "Color theme (default, catppuccin-mocha)")
	cmd.Flags().StringP("output", "o", "summary", "Output format (summary, json)")
	_ = viper.BindPFlag("ui.theme", cmd.Flags().Lookup("theme"))

	return cmd
}

func runForm(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	input, err := tui.Run(ctx, tui.RunOptions{
		Form: []tui.Option{tui.WithTheme(themes.ByName(viper.GetString("ui.theme")))},
	})
	if errors.Is(err, tui.ErrCanceled) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo("Canceled, nothing analyzed."))
		return nil
	}
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

	report, err := analyzeOne(ctx, a.engine, input, execContext(false), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return printReport(cmd.OutOrStdout(), report, output)
}
