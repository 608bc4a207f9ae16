package retrieval

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk length, in runes, used by Ingest.
const DefaultChunkSize = 500

// Chunk splits text into sentences on "。" and "." and greedily merges
// them into chunks of at most maxLen runes. A single sentence longer
// than maxLen becomes its own chunk.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	for _, sentence := range splitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if curLen > 0 && curLen+n+1 > maxLen {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 && !strings.HasSuffix(cur.String(), "。") {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(sentence)
		curLen += n
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// splitSentences keeps each terminator with its sentence and drops
// empty sentences.
func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if s := strings.TrimSpace(text[start:end]); s != "" && s != "." && s != "。" {
			out = append(out, s)
		}
		start = end
	}
	for i, r := range text {
		switch r {
		case '。':
			emit(i + len("。"))
		case '.':
			emit(i + 1)
		}
	}
	emit(len(text))
	return out
}
