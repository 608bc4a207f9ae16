package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// ValidationError describes why a model response was rejected. It always
// matches common.ErrMalformedOutput.
type ValidationError struct {
	Err     error
	Field   string
	Reason  string
	Section string
	Line    int
	Column  int
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid analysis result")
	if e.Field != "" {
		fmt.Fprintf(&b, ": field '%s'", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	return b.String()
}

// Unwrap exposes both the taxonomy sentinel and the underlying decode error.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrMalformedOutput}
	}
	return []error{common.ErrMalformedOutput, e.Err}
}

// ResultValidator parses and checks model output against the analysis schema.
type ResultValidator struct{}

// NewResultValidator creates a new validator instance.
func NewResultValidator() *ResultValidator {
	return &ResultValidator{}
}

// ValidateText validates a text response from a blocking or non-blocking call.
func (v *ResultValidator) ValidateText(text string) (model.AnalysisResult, error) {
	return v.Validate([]byte(text))
}

// Validate performs one full-document parse of data and checks that the
// required fields are present under their exact names, correctly typed and
// in range. List fields must hold only strings. Unknown fields are ignored.
// A surrounding markdown code fence is removed first.
func (v *ResultValidator) Validate(data []byte) (model.AnalysisResult, error) {
	data = stripCodeFence(data)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		section, line, column := v.ExtractError(data, err)
		return model.AnalysisResult{}, &ValidationError{
			Err:     err,
			Reason:  "not a valid JSON object",
			Section: section,
			Line:    line,
			Column:  column,
		}
	}

	var (
		result model.AnalysisResult
		err    error
	)
	if err = decodeField(fields, "overview", &result.Overview); err != nil {
		return model.AnalysisResult{}, err
	}
	if result.Recommendations, err = decodeStrings(fields, "recommendations"); err != nil {
		return model.AnalysisResult{}, err
	}
	if result.Risks, err = decodeStrings(fields, "risks"); err != nil {
		return model.AnalysisResult{}, err
	}
	if err = decodeField(fields, "confidence", &result.Confidence); err != nil {
		return model.AnalysisResult{}, err
	}

	if c := result.Confidence; c < 0 || c > 1 {
		return model.AnalysisResult{}, &ValidationError{
			Field:  "confidence",
			Reason: fmt.Sprintf("must be between 0 and 1, got %g", c),
		}
	}
	result.Confidence = clampConfidence(result.Confidence)
	return result.Clone(), nil
}

// decodeField decodes the value stored under exactly name. Absent and null
// values are both reported as missing.
func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return missingField(name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		verr := &ValidationError{Err: err, Field: name, Reason: "has the wrong type"}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			verr.Reason = fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
		}
		return verr
	}
	return nil
}

// decodeStrings decodes a list of strings, rejecting null items.
func decodeStrings(fields map[string]json.RawMessage, name string) ([]string, error) {
	var items []*string
	if err := decodeField(fields, name, &items); err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			return nil, &ValidationError{Field: name, Reason: fmt.Sprintf("item %d is null, expected string", i)}
		}
		out[i] = *item
	}
	return out, nil
}

func missingField(name string) error {
	return &ValidationError{Field: name, Reason: "is required"}
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return data
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return data
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}

// ExtractError identifies the problematic section of malformed JSON.
func (v *ResultValidator) ExtractError(data []byte, err error) (section string, line int, column int) {
	section = "unknown"

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, column = calculatePosition(data, syntaxErr.Offset)

		start := syntaxErr.Offset - 50
		if start < 0 {
			start = 0
		}
		end := syntaxErr.Offset + 50
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		if start > end {
			start = end
		}

		section = string(data[start:end])
		return section, line, column
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, column = calculatePosition(data, typeErr.Offset)
		section = fmt.Sprintf("field '%s' (expected %s)", typeErr.Field, typeErr.Type.String())
		return section, line, column
	}

	if strings.Contains(err.Error(), "field") {
		section = extractFieldContext(data, err.Error())
	}

	return section, line, column
}

// calculatePosition converts a byte offset to line and column numbers.
func calculatePosition(data []byte, offset int64) (line int, column int) {
	line = 1
	column = 1

	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}

	return
}

// extractFieldContext attempts to extract context for field-related errors.
func extractFieldContext(data []byte, errStr string) string {
	parts := strings.Split(errStr, "'")
	if len(parts) >= 2 {
		fieldPattern := fmt.Sprintf(`"%s"`, parts[1])
		idx := strings.Index(string(data), fieldPattern)
		if idx >= 0 {
			end := idx + 50
			if end > len(data) {
				end = len(data)
			}
			return string(data[idx:end])
		}
	}

	return "field"
}
