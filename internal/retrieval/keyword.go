package retrieval

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

var _ service.Retriever = (*KeywordRetriever)(nil)

// DefaultDocuments seed the knowledge base when none is configured.
var DefaultDocuments = []string{
	"示例法规片段：消费者债务相关法律条款摘要",
	"示例金融建议：债务重组与利率优化最佳实践",
}

// KeywordRetriever matches documents that contain the query.
type KeywordRetriever struct {
	docs []string
	mu   sync.RWMutex
}

// NewKeywordRetriever creates a retriever over docs.
func NewKeywordRetriever(docs []string) *KeywordRetriever {
	return &KeywordRetriever{docs: append([]string(nil), docs...)}
}

// Add appends a document.
func (r *KeywordRetriever) Add(doc string) {
	r.mu.Lock()
	r.docs = append(r.docs, doc)
	r.mu.Unlock()
}

// Retrieve returns up to limit documents containing query, ignoring case.
// When nothing matches it returns the first limit documents instead. It
// never fails.
func (r *KeywordRetriever) Retrieve(_ context.Context, query string, limit int) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		return []string{}, nil
	}

	q := strings.ToLower(query)
	matches := make([]string, 0, limit)
	for _, doc := range r.docs {
		if strings.Contains(strings.ToLower(doc), q) {
			matches = append(matches, doc)
			if len(matches) == limit {
				return matches, nil
			}
		}
	}
	if len(matches) > 0 {
		return matches, nil
	}

	n := min(limit, len(r.docs))
	return append(make([]string, 0, n), r.docs[:n]...), nil
}

// LoadDocuments reads a knowledge-base file in which documents are
// separated by blank lines.
func LoadDocuments(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path)) // #nosec G304 -- path from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open documents file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		docs    []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			docs = append(docs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents file: %w", err)
	}
	flush()

	return docs, nil
}
