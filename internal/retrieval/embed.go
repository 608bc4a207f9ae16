package retrieval

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDims is the embedding width used by Ingest.
const DefaultDims = 64

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HashEmbedder is an offline Embedder based on feature hashing.
type HashEmbedder struct {
	Dims int
}

// Embed implements Embedder.
func (e HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return HashEmbed(text, e.Dims), nil
}

// HashEmbed hashes each token of text into one of dims buckets and
// returns the L2-normalized counts. Latin words are tokens; each Han
// character is its own token. Equal texts always embed equally.
func HashEmbed(text string, dims int) []float64 {
	if dims <= 0 {
		dims = DefaultDims
	}
	vec := make([]float64, dims)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%uint32(dims)]++ // #nosec G115 -- dims is positive
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	return tokens
}
