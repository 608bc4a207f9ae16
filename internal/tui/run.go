package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// ErrCanceled is returned when the user leaves the form without submitting.
var ErrCanceled = errors.New("statement entry canceled")

// RunOptions controls where the form reads and renders.
type RunOptions struct {
	Input  io.Reader
	Output io.Writer
	Form   []Option
}

// Run shows the form until the user submits or cancels it.
func Run(ctx context.Context, opts RunOptions) (model.FinancialInput, error) {
	form := NewForm(opts.Form...)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(form, programOpts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return model.FinancialInput{}, ctx.Err()
		}
		return model.FinancialInput{}, fmt.Errorf("form failed: %w", err)
	}

	f, ok := final.(*Form)
	if !ok {
		return model.FinancialInput{}, fmt.Errorf("unexpected model type %T", final)
	}
	input, ok := f.Result()
	if !ok {
		return model.FinancialInput{}, ErrCanceled
	}
	return input, nil
}
