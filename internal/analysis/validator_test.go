package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

func TestResultValidator_Validate(t *testing.T) {
	validator := NewResultValidator()

	tests := []struct {
		name      string
		input     string
		wantField string
		want      model.AnalysisResult
		wantErr   bool
	}{
		{
			name:  "valid result",
			input: validResponse,
			want: model.AnalysisResult{
				Overview:        "ok",
				Recommendations: []string{"a"},
				Risks:           []string{},
				Confidence:      0.8,
			},
		},
		{
			name:  "extra fields are ignored",
			input: `{"overview":"x","recommendations":[],"risks":["r"],"confidence":1,"notes":"extra"}`,
			want: model.AnalysisResult{
				Overview:        "x",
				Recommendations: []string{},
				Risks:           []string{"r"},
				Confidence:      1,
			},
		},
		{
			name:  "confidence at lower bound",
			input: `{"overview":"x","recommendations":[],"risks":[],"confidence":0}`,
			want: model.AnalysisResult{
				Overview:        "x",
				Recommendations: []string{},
				Risks:           []string{},
			},
		},
		{
			name:  "markdown code fence",
			input: "```json\n" + validResponse + "\n```",
			want: model.AnalysisResult{
				Overview:        "ok",
				Recommendations: []string{"a"},
				Risks:           []string{},
				Confidence:      0.8,
			},
		},
		{
			name:      "missing overview",
			input:     `{"recommendations":[],"risks":[],"confidence":0.5}`,
			wantErr:   true,
			wantField: "overview",
		},
		{
			name:      "null risks",
			input:     `{"overview":"x","recommendations":[],"risks":null,"confidence":0.5}`,
			wantErr:   true,
			wantField: "risks",
		},
		{
			name:      "missing confidence",
			input:     `{"overview":"x","recommendations":[],"risks":[]}`,
			wantErr:   true,
			wantField: "confidence",
		},
		{
			name:      "confidence above range",
			input:     `{"overview":"x","recommendations":[],"risks":[],"confidence":1.5}`,
			wantErr:   true,
			wantField: "confidence",
		},
		{
			name:      "confidence below range",
			input:     `{"overview":"x","recommendations":[],"risks":[],"confidence":-0.1}`,
			wantErr:   true,
			wantField: "confidence",
		},
		{
			name:      "wrong type for recommendations",
			input:     `{"overview":"x","recommendations":"pay debt","risks":[],"confidence":0.5}`,
			wantErr:   true,
			wantField: "recommendations",
		},
		{
			name:      "wrong-case keys",
			input:     `{"OVERVIEW":"x","Recommendations":["a"],"RISKS":[],"Confidence":0.5}`,
			wantErr:   true,
			wantField: "overview",
		},
		{
			name:      "wrong-case confidence",
			input:     `{"overview":"x","recommendations":[],"risks":[],"Confidence":0.5}`,
			wantErr:   true,
			wantField: "confidence",
		},
		{
			name:      "null item in recommendations",
			input:     `{"overview":"x","recommendations":["a",null],"risks":[],"confidence":0.5}`,
			wantErr:   true,
			wantField: "recommendations",
		},
		{
			name:      "null item in risks",
			input:     `{"overview":"x","recommendations":[],"risks":[null],"confidence":0.5}`,
			wantErr:   true,
			wantField: "risks",
		},
		{
			name:      "confidence as string",
			input:     `{"overview":"x","recommendations":[],"risks":[],"confidence":"high"}`,
			wantErr:   true,
			wantField: "confidence",
		},
		{
			name:    "not json",
			input:   "I recommend paying down debt.",
			wantErr: true,
		},
		{
			name:    "truncated json",
			input:   `{"overview":"x","recommendations":[`,
			wantErr: true,
		},
		{
			name:    "trailing data",
			input:   validResponse + `{"overview":"again"}`,
			wantErr: true,
		},
		{
			name:    "array instead of object",
			input:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ValidateText(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrMalformedOutput)

				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				if tt.wantField != "" {
					assert.Equal(t, tt.wantField, verr.Field)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResultValidator_SyntaxErrorPosition(t *testing.T) {
	validator := NewResultValidator()
	data := "{\n  \"overview\": \"x\",\n  \"risks\": [,]\n}"

	_, err := validator.ValidateText(data)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 3, verr.Line)
	assert.Greater(t, verr.Column, 1)
	assert.NotEqual(t, "unknown", verr.Section)

	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestCalculatePosition(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		offset     int64
		wantLine   int
		wantColumn int
	}{
		{name: "start", data: "abc", offset: 0, wantLine: 1, wantColumn: 1},
		{name: "same line", data: "abc", offset: 2, wantLine: 1, wantColumn: 3},
		{name: "after newline", data: "ab\ncd", offset: 4, wantLine: 2, wantColumn: 2},
		{name: "past end", data: "a\nb", offset: 99, wantLine: 2, wantColumn: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := calculatePosition([]byte(tt.data), tt.offset)
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.wantColumn, col)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "single line fence untouched", in: "```{}```", want: "```{}```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(stripCodeFence([]byte(tt.in))))
		})
	}
}
