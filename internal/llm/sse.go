package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	ssePrefix   = "data:"
	sseSentinel = "[DONE]"
	maxSSELine  = 1024 * 1024
)

// postJSON sends body and returns the response body of a 2xx reply.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body any) ([]byte, error) {
	resp, err := openJSON(ctx, client, provider, url, headers, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// openJSON sends body and returns the open response of a 2xx reply.
// The caller must close the body.
func openJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

// eventLines yields each non-empty line of an event-stream body until
// the body ends, the sentinel arrives, or yield returns false. Lines are
// passed through with their framing intact.
func eventLines(ctx context.Context, body io.Reader, yield func(string, error) bool) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.TrimSpace(strings.TrimPrefix(trimmed, ssePrefix)) == sseSentinel {
			return
		}
		if !yield(line, nil) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		yield("", fmt.Errorf("stream read failed: %w", err))
	}
}

// eventData strips the "data:" framing from an event-stream line. The
// second result is false for lines that carry no data field.
func eventData(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ssePrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, ssePrefix)), true
}
