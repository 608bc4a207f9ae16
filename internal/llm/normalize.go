package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Normalize reduces a provider response to its generated text. It
// checks, in order: a plain string, a "text" field, an "output" field,
// candidates[0].content, then choices[0].text or
// choices[0].message.content. Anything else is rendered as JSON.
func Normalize(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return string(v)
		}
		return Normalize(decoded)
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s
		}
		if s, ok := v["output"].(string); ok {
			return s
		}
		if first, ok := firstObject(v["candidates"]); ok {
			if content, ok := first["content"]; ok {
				return contentText(content)
			}
		}
		if first, ok := firstObject(v["choices"]); ok {
			if s, ok := first["text"].(string); ok {
				return s
			}
			if msg, ok := first["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok && s != "" {
					return s
				}
				return render(msg)
			}
		}
	}
	return render(data)
}

func firstObject(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	first, ok := list[0].(map[string]any)
	return first, ok
}

// contentText handles both a plain content string and the
// {"parts":[{"text":...}]} shape.
func contentText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case map[string]any:
		parts, ok := c["parts"].([]any)
		if !ok {
			return render(c)
		}
		var sb strings.Builder
		for _, p := range parts {
			if part, ok := p.(map[string]any); ok {
				if s, ok := part["text"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		return sb.String()
	}
	return render(content)
}

func render(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// decodeBody decodes a JSON response, falling back to the raw text.
func decodeBody(body []byte) any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}
