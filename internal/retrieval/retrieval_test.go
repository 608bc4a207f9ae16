package retrieval

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordRetriever_Retrieve(t *testing.T) {
	docs := []string{
		"Debt consolidation reduces interest.",
		"Emergency funds cover three months.",
		"DEBT snowball method.",
		"Budget categories.",
	}
	r := NewKeywordRetriever(docs)

	tests := []struct {
		name  string
		query string
		want  []string
		limit int
	}{
		{name: "case insensitive match", query: "debt", limit: 5, want: []string{docs[0], docs[2]}},
		{name: "limit applied to matches", query: "debt", limit: 1, want: []string{docs[0]}},
		{name: "no match returns first docs", query: "mortgage", limit: 2, want: []string{docs[0], docs[1]}},
		{name: "limit above corpus", query: "mortgage", limit: 10, want: docs},
		{name: "zero limit", query: "debt", limit: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Retrieve(context.Background(), tt.query, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordRetriever_EmptyCorpus(t *testing.T) {
	r := NewKeywordRetriever(nil)
	got, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	r.Add("new doc")
	got, err = r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"new doc"}, got)
}

func TestLoadDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	content := "first line\ncontinued\n\n\nsecond doc\n  \nthird doc\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first line\ncontinued", "second doc", "third doc"}, docs)

	_, err = LoadDocuments(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   []string
		maxLen int
	}{
		{
			name:   "merges short sentences",
			text:   "One. Two. Three.",
			maxLen: 100,
			want:   []string{"One. Two. Three."},
		},
		{
			name:   "splits when full",
			text:   "Alpha beta. Gamma delta. Epsilon.",
			maxLen: 12,
			want:   []string{"Alpha beta.", "Gamma delta.", "Epsilon."},
		},
		{
			name:   "chinese terminators",
			text:   "关于消费者保护的若干条款。预算分配。债务重组。",
			maxLen: 100,
			want:   []string{"关于消费者保护的若干条款。预算分配。债务重组。"},
		},
		{
			name:   "trailing text without terminator",
			text:   "Done. tail",
			maxLen: 100,
			want:   []string{"Done. tail"},
		},
		{
			name:   "long sentence kept whole",
			text:   strings.Repeat("x", 30) + ".",
			maxLen: 10,
			want:   []string{strings.Repeat("x", 30) + "."},
		},
		{name: "empty", text: "  ", maxLen: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.maxLen))
		})
	}
}

func TestChunk_RespectsMaxLen(t *testing.T) {
	text := strings.Repeat("预算分配。Short one. ", 40)
	for _, c := range Chunk(text, 50) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
	}
}

func TestHashEmbed(t *testing.T) {
	a := HashEmbed("Debt ratio analysis", 16)
	b := HashEmbed("debt RATIO analysis!", 16)
	assert.Len(t, a, 16)
	assert.Equal(t, a, b, "tokenization ignores case and punctuation")

	var norm float64
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)

	assert.Equal(t, make([]float64, 8), HashEmbed("...", 8))
	assert.Len(t, HashEmbed("x", 0), DefaultDims)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"pay", "债", "务", "now2"}, tokenize("Pay债务, now2!"))
}

func TestVectorStore_UpsertAndQuery(t *testing.T) {
	s := NewVectorStore()
	require.NoError(t, s.Upsert(
		[]string{"a", "b", "c"},
		[][]float64{{0, 0}, {3, 4}, {1, 0}},
		[]Metadata{{Text: "origin"}, {Text: "far"}, {Text: "near"}},
	))

	got := s.Query([]float64{0, 0}, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.InDelta(t, 1.0, got[1].Distance, 1e-9)

	all := s.Query([]float64{0, 0}, 10)
	require.Len(t, all, 3)
	assert.InDelta(t, 5.0, all[2].Distance, 1e-9)

	require.NoError(t, s.Upsert([]string{"b"}, [][]float64{{0, 0.5}}, []Metadata{{Text: "moved"}}))
	assert.Equal(t, 3, s.Len())
	got = s.Query([]float64{0, 0}, 2)
	assert.Equal(t, []string{"a", "b"}, []string{got[0].ID, got[1].ID})
	assert.Equal(t, "moved", got[1].Metadata.Text)

	assert.Empty(t, s.Query([]float64{0, 0}, 0))
	assert.Error(t, s.Upsert([]string{"x"}, nil, nil))
}

func TestIngestAndVectorRetriever(t *testing.T) {
	store := Ingest([]string{
		"Consumer protection rules limit collection calls. Lenders must disclose fees.",
		"Debt ratio analysis compares liabilities with assets.",
	})
	assert.Equal(t, 2, store.Len())

	r := NewVectorRetriever(store, nil)
	got, err := r.Retrieve(context.Background(), "debt ratio analysis assets:100 liabilities:50", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Debt ratio analysis compares liabilities with assets."}, got)

	ids := store.Query(HashEmbed("x", DefaultDims), 2)
	assert.ElementsMatch(t, []string{"doc0_chunk0", "doc1_chunk0"}, []string{ids[0].ID, ids[1].ID})
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("embedding service down")
}

func TestVectorRetriever_EmbedError(t *testing.T) {
	r := NewVectorRetriever(NewVectorStore(), failingEmbedder{})
	_, err := r.Retrieve(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "embedding service down")
}

func TestBoltIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "kb.db")

	idx, err := OpenBoltIndex(path)
	require.NoError(t, err)
	store := Ingest([]string{"First doc. Has two sentences.", "Second doc."})
	require.NoError(t, idx.Save(store))
	require.NoError(t, idx.Close())

	idx, err = OpenBoltIndex(path)
	require.NoError(t, err)
	defer func() { assert.NoError(t, idx.Close()) }()

	loaded, err := idx.Load()
	require.NoError(t, err)
	assert.Equal(t, store.Len(), loaded.Len())

	q := HashEmbed("second doc", DefaultDims)
	assert.Equal(t, store.Query(q, 1)[0].ID, loaded.Query(q, 1)[0].ID)
}
