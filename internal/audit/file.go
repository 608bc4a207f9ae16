package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
)

// FileSink appends audit entries as JSON lines.
type FileSink struct {
	file  *os.File
	now   func() time.Time
	agent string
	mu    sync.Mutex
}

// NewFileSink opens path for appending, creating it and its directory
// if needed.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 -- path from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &FileSink{
		file:  f,
		now:   time.Now,
		agent: DefaultAgent,
	}, nil
}

// Record writes one line. Each line is written with a single call so
// concurrent processes appending to the same file do not interleave.
func (s *FileSink) Record(ctx context.Context, summary string, result model.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := Entry{
		Timestamp: s.now().UTC(),
		Agent:     s.agent,
		Input:     summary,
		Result:    result,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("audit log is closed")
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
