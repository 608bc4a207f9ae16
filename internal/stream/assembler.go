package stream

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/common"
)

// Defaults for the event-stream framing.
const (
	DefaultMaxBuffer = 20000
	DefaultPrefix    = "data:"
	DefaultSentinel  = "[DONE]"
)

// Config controls framing and buffer limits.
type Config struct {
	Prefix    string
	Sentinel  string
	MaxBuffer int
}

// DefaultConfig returns the event-stream framing with a 20000 byte cap.
func DefaultConfig() Config {
	return Config{
		Prefix:    DefaultPrefix,
		Sentinel:  DefaultSentinel,
		MaxBuffer: DefaultMaxBuffer,
	}
}

// Assembler accumulates fragments and extracts complete JSON values.
type Assembler struct {
	prefix    *regexp.Regexp
	buf       string
	cfg       Config
	overflows int
	finished  bool
}

// NewAssembler creates an Assembler. Zero fields in cfg take defaults.
func NewAssembler(cfg Config) *Assembler {
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = DefaultMaxBuffer
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}

	a := &Assembler{cfg: cfg}
	if cfg.Prefix != "" {
		a.prefix = regexp.MustCompile(`^\s*` + regexp.QuoteMeta(cfg.Prefix) + `\s*`)
	}
	return a
}

// Feed appends chunk to the buffer and tries to extract the first
// complete JSON object or array. An empty chunk still attempts
// extraction, so repeated Feed("") calls drain concatenated values one
// at a time.
func (a *Assembler) Feed(chunk string) (json.RawMessage, bool) {
	if chunk != "" {
		a.appendLines(chunk)
	}

	if a.buf == "" {
		return nil, false
	}

	if len(a.buf) > a.cfg.MaxBuffer {
		dropped := len(a.buf) - a.cfg.MaxBuffer
		a.buf = a.buf[dropped:]
		a.overflows++
		slog.Warn("Stream buffer over capacity, dropping oldest bytes",
			"error", common.ErrBufferOverflow,
			"dropped", dropped,
			"max_buffer", a.cfg.MaxBuffer)
	}

	start := strings.IndexAny(a.buf, "{[")
	if start < 0 {
		return nil, false
	}
	if start > 0 {
		a.buf = a.buf[start:]
	}

	dec := json.NewDecoder(strings.NewReader(a.buf))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}

	a.buf = a.buf[dec.InputOffset():]
	return raw, true
}

func (a *Assembler) appendLines(chunk string) {
	var sb strings.Builder
	sb.WriteString(a.buf)

	for _, line := range splitLines(chunk) {
		if a.prefix != nil {
			line = a.prefix.ReplaceAllString(line, "")
		}
		if line == "" {
			continue
		}
		if strings.TrimSpace(line) == a.cfg.Sentinel {
			a.finished = true
			continue
		}
		sb.WriteString(line)
	}

	a.buf = sb.String()
}

// lineBreaks folds every line boundary into \n. \r\n must precede \r.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\v", "\n",
	"\f", "\n",
	"\x1c", "\n",
	"\x1d", "\n",
	"\x1e", "\n",
	"\u0085", "\n",
	"\u2028", "\n",
	"\u2029", "\n",
)

// splitLines splits on the universal line boundaries (\n, \r\n, \r, \v,
// \f, \x1c-\x1e, NEL, LS and PS) without keeping terminators.
func splitLines(s string) []string {
	return strings.Split(lineBreaks.Replace(s), "\n")
}

// Reset discards any buffered partial data.
func (a *Assembler) Reset() {
	a.buf = ""
	a.finished = false
}

// Finished reports whether the terminal sentinel has been seen.
func (a *Assembler) Finished() bool {
	return a.finished
}

// Overflows returns how many times the buffer was truncated.
func (a *Assembler) Overflows() int {
	return a.overflows
}

// Buffered returns the number of bytes currently held.
func (a *Assembler) Buffered() int {
	return len(a.buf)
}
