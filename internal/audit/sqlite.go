package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// SQLiteSink inserts audit entries into the audit_records table.
type SQLiteSink struct {
	db    *sql.DB
	agent string
}

// NewSQLiteSink creates a sink over a migrated database.
func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: db, agent: DefaultAgent}
}

// Record implements service.AuditSink.
func (s *SQLiteSink) Record(ctx context.Context, summary string, result model.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal audit result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (recorded_at, agent, input, result, source, needs_legal_review)
		VALUES (?, ?, ?, ?, ?, ?)
	`, time.Now().UTC(), s.agent, summary, string(data), string(result.Source), result.NeedsLegalReview)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Recent returns the newest entries first, at most limit of them.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, agent, input, result
		FROM audit_records
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			data string
		)
		if err := rows.Scan(&e.Timestamp, &e.Agent, &e.Input, &data); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit result: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return entries, nil
}
