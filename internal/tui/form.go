// Package tui provides the interactive statement entry form.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/tui/themes"
)

// Field indexes, in display order.
const (
	FieldUserID = iota
	FieldAssets
	FieldLiabilities
	FieldIncome
	FieldExpenses
	FieldNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{"User ID", "Assets", "Liabilities", "Income", "Expenses", "Notes"}

const notesLimit = 2000

// Form is a bubbletea model collecting one financial statement.
type Form struct {
	keys      KeyMap
	help      help.Model
	theme     themes.Theme
	err       error
	inputs    []textinput.Model
	result    model.FinancialInput
	focus     int
	width     int
	submitted bool
	canceled  bool
}

// Option configures a Form.
type Option func(*Form)

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(f *Form) { f.theme = theme }
}

// WithInitial prefills the form from an existing statement.
func WithInitial(input model.FinancialInput) Option {
	return func(f *Form) {
		f.inputs[FieldUserID].SetValue(input.UserID)
		f.inputs[FieldNotes].SetValue(input.Notes)
		for idx, v := range map[int]decimal.Decimal{
			FieldAssets:      input.Assets,
			FieldLiabilities: input.Liabilities,
			FieldIncome:      input.Income,
			FieldExpenses:    input.Expenses,
		} {
			if !v.IsZero() {
				f.inputs[idx].SetValue(v.String())
			}
		}
	}
}

// NewForm creates a form with focus on the first field.
func NewForm(opts ...Option) *Form {
	f := &Form{
		keys:   DefaultKeyMap(),
		help:   help.New(),
		theme:  themes.Default,
		inputs: make([]textinput.Model, fieldCount),
		width:  80,
	}

	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 32
		switch i {
		case FieldUserID:
			ti.Placeholder = "optional"
		case FieldNotes:
			ti.Placeholder = "optional, e.g. two credit cards and a car loan"
			ti.CharLimit = notesLimit
		default:
			ti.Placeholder = "0.00"
			ti.Validate = numericRunes
		}
		f.inputs[i] = ti
	}

	for _, opt := range opts {
		opt(f)
	}
	f.inputs[0].Focus()
	return f
}

// numericRunes rejects characters that can never form an amount.
func numericRunes(s string) error {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != ',' {
			return fmt.Errorf("unexpected character %q", r)
		}
	}
	return nil
}

// Init implements tea.Model.
func (f *Form) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (f *Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.help.Width = msg.Width
		return f, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, f.keys.Quit):
			f.canceled = true
			return f, tea.Quit
		case key.Matches(msg, f.keys.Next):
			return f, f.setFocus(f.focus + 1)
		case key.Matches(msg, f.keys.Prev):
			return f, f.setFocus(f.focus - 1)
		case key.Matches(msg, f.keys.Submit):
			if f.focus < fieldCount-1 && msg.String() == "enter" {
				return f, f.setFocus(f.focus + 1)
			}
			return f, f.submit()
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *Form) setFocus(idx int) tea.Cmd {
	idx = (idx + fieldCount) % fieldCount
	f.inputs[f.focus].Blur()
	f.focus = idx
	return f.inputs[idx].Focus()
}

func (f *Form) submit() tea.Cmd {
	values := make([]string, fieldCount)
	for i, in := range f.inputs {
		values[i] = in.Value()
	}

	input, err := ParseFields(values)
	if err != nil {
		f.err = err
		return nil
	}

	f.err = nil
	f.result = input
	f.submitted = true
	return tea.Quit
}

// ParseFields converts raw field values, in Field order, into a validated
// statement. Thousands separators are accepted.
func ParseFields(values []string) (model.FinancialInput, error) {
	if len(values) != fieldCount {
		return model.FinancialInput{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(values))
	}

	input := model.FinancialInput{
		UserID: strings.TrimSpace(values[FieldUserID]),
		Notes:  strings.TrimSpace(values[FieldNotes]),
	}
	targets := map[int]*decimal.Decimal{
		FieldAssets:      &input.Assets,
		FieldLiabilities: &input.Liabilities,
		FieldIncome:      &input.Income,
		FieldExpenses:    &input.Expenses,
	}

	var errs []error
	for idx := FieldAssets; idx <= FieldExpenses; idx++ {
		raw := strings.ReplaceAll(strings.TrimSpace(values[idx]), ",", "")
		if raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", strings.ToLower(fieldLabels[idx])))
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s is not a number", strings.ToLower(fieldLabels[idx])))
			continue
		}
		*targets[idx] = d
	}
	if len(errs) > 0 {
		return model.FinancialInput{}, errors.Join(errs...)
	}

	if err := input.Validate(); err != nil {
		return model.FinancialInput{}, err
	}
	return input, nil
}

// View implements tea.Model.
func (f *Form) View() string {
	var b strings.Builder
	b.WriteString(f.theme.Title.Render("Financial Statement"))
	b.WriteByte('\n')
	b.WriteString(f.theme.Subtitle.Render("Enter your figures; amounts are in your home currency."))
	b.WriteByte('\n')

	for i, in := range f.inputs {
		label := f.theme.Label
		if i == f.focus {
			label = f.theme.Focused
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label.Render(fieldLabels[i]), in.View()))
		b.WriteByte('\n')
	}

	if f.err != nil {
		b.WriteByte('\n')
		for _, line := range strings.Split(f.err.Error(), "\n") {
			b.WriteString(f.theme.Error.Render("✗ " + line))
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(f.help.View(f.keys))

	box := f.theme.RoundedBox
	if f.width > 4 {
		box = box.MaxWidth(f.width)
	}
	return box.Render(b.String())
}

// Result returns the submitted statement. ok is false when the form was
// canceled or not yet submitted.
func (f *Form) Result() (input model.FinancialInput, ok bool) {
	return f.result, f.submitted && !f.canceled
}

// Canceled reports whether the user left the form without submitting.
func (f *Form) Canceled() bool {
	return f.canceled
}
