// Package audit records one entry per analyzed request for compliance
// review. Sinks are called by the analysis engine after the result has
// been returned; their failures never reach callers.
package audit

import (
	"context"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

// DefaultAgent names the component that produced audited results.
const DefaultAgent = "CFPAgent"

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time            `json:"timestamp"`
	Agent     string               `json:"agent"`
	Input     string               `json:"input"`
	Result    model.AnalysisResult `json:"result"`
}

var (
	_ service.AuditSink = (*FileSink)(nil)
	_ service.AuditSink = (*SQLiteSink)(nil)
	_ service.AuditSink = NopSink{}
)

// NopSink discards every record.
type NopSink struct{}

// Record implements service.AuditSink.
func (NopSink) Record(context.Context, string, model.AnalysisResult) error {
	return nil
}
