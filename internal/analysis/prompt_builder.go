package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// requiredKeys are the only keys the model is asked to return.
var requiredKeys = []string{"overview", "recommendations", "risks", "confidence"}

// TemplatePromptBuilder handles generation of prompts for LLM analysis using templates.
type TemplatePromptBuilder struct {
	templates map[string]*template.Template
}

// NewTemplatePromptBuilder creates a new TemplatePromptBuilder with loaded templates.
func NewTemplatePromptBuilder() (*TemplatePromptBuilder, error) {
	pb := &TemplatePromptBuilder{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"formatRatio": formatRatio,
		"truncate":    truncate,
		"join":        strings.Join,
	}

	templates := []string{
		"analysis_prompt",
		"json_schema",
	}

	for _, name := range templates {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(fmt.Sprintf("%s.tmpl", name)).Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

// PromptData contains all data needed for the analysis prompt.
type PromptData struct {
	Summary string
	Notes   string
	Schema  string
	Context []string
	Keys    []string
}

// BuildAnalysisPrompt renders the SYSTEM/INPUT/CONTEXT/TASK/OUTPUT prompt
// for input, with docs joined by a separator line.
func (pb *TemplatePromptBuilder) BuildAnalysisPrompt(input model.FinancialInput, docs []string) (string, error) {
	schemaData := struct {
		MinConfidence float64
		MaxConfidence float64
	}{0, 1}

	var schemaBuf bytes.Buffer
	if err := pb.templates["json_schema"].ExecuteTemplate(&schemaBuf, "json_schema.tmpl", schemaData); err != nil {
		return "", fmt.Errorf("failed to execute json_schema template: %w", err)
	}

	data := PromptData{
		Summary: input.Summary(),
		Notes:   truncate(strings.TrimSpace(input.Notes), 500),
		Schema:  strings.TrimSpace(schemaBuf.String()),
		Context: docs,
		Keys:    requiredKeys,
	}

	var buf bytes.Buffer
	if err := pb.templates["analysis_prompt"].ExecuteTemplate(&buf, "analysis_prompt.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute analysis_prompt template: %w", err)
	}

	return buf.String(), nil
}

// RetrievalQuery is the knowledge-base query issued for input.
func RetrievalQuery(input model.FinancialInput) string {
	return fmt.Sprintf("debt ratio analysis assets:%s liabilities:%s", input.Assets, input.Liabilities)
}

// Template helper functions

func formatRatio(r float64) string {
	return fmt.Sprintf("%.1f", r)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
