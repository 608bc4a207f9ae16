package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

// Metadata describes one stored chunk.
type Metadata struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Match is one query hit.
type Match struct {
	Metadata Metadata
	ID       string
	Distance float64
}

type record struct {
	Metadata Metadata  `json:"metadata"`
	ID       string    `json:"id"`
	Vector   []float64 `json:"vector"`
}

// VectorStore is an in-memory vector index ranked by linear scan.
type VectorStore struct {
	index   map[string]int
	records []record
	mu      sync.RWMutex
}

// NewVectorStore creates an empty store.
func NewVectorStore() *VectorStore {
	return &VectorStore{index: make(map[string]int)}
}

// Upsert stores vectors under ids, replacing entries whose id exists.
// The three slices must have equal length.
func (s *VectorStore) Upsert(ids []string, vectors [][]float64, metadata []Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("upsert length mismatch: %d ids, %d vectors, %d metadata",
			len(ids), len(vectors), len(metadata))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		rec := record{
			ID:       id,
			Vector:   append([]float64(nil), vectors[i]...),
			Metadata: metadata[i],
		}
		if pos, ok := s.index[id]; ok {
			s.records[pos] = rec
			continue
		}
		s.index[id] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

// Query returns the topK entries closest to vector by L2 distance.
// Ties keep insertion order.
func (s *VectorStore) Query(vector []float64, topK int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		matches = append(matches, Match{
			ID:       rec.ID,
			Distance: l2(vector, rec.Vector),
			Metadata: rec.Metadata,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if topK < 0 {
		topK = 0
	}
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches
}

// Len returns the number of stored entries.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *VectorStore) snapshot() []record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record(nil), s.records...)
}

// l2 compares the common prefix of a and b.
func l2(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Ingest chunks and embeds docs into a new store. Chunk ids are
// doc{i}_chunk{j}.
func Ingest(docs []string) *VectorStore {
	store := NewVectorStore()
	for i, doc := range docs {
		AddDocument(store, fmt.Sprintf("doc%d", i), doc, DefaultChunkSize, DefaultDims)
	}
	return store
}

// AddDocument chunks and embeds one document under source and returns
// the number of chunks stored.
func AddDocument(store *VectorStore, source, doc string, maxLen, dims int) int {
	chunks := Chunk(doc, maxLen)
	ids := make([]string, len(chunks))
	vectors := make([][]float64, len(chunks))
	metadata := make([]Metadata, len(chunks))
	for j, c := range chunks {
		ids[j] = fmt.Sprintf("%s_chunk%d", source, j)
		vectors[j] = HashEmbed(c, dims)
		metadata[j] = Metadata{Source: source, Text: c}
	}
	// lengths always match
	_ = store.Upsert(ids, vectors, metadata)
	return len(chunks)
}

var _ service.Retriever = (*VectorRetriever)(nil)

// VectorRetriever adapts a VectorStore and Embedder to service.Retriever.
type VectorRetriever struct {
	store    *VectorStore
	embedder Embedder
}

// NewVectorRetriever creates a retriever. A nil embedder defaults to a
// HashEmbedder of DefaultDims.
func NewVectorRetriever(store *VectorStore, embedder Embedder) *VectorRetriever {
	if embedder == nil {
		embedder = HashEmbedder{Dims: DefaultDims}
	}
	return &VectorRetriever{store: store, embedder: embedder}
}

// Retrieve returns the text of the limit nearest chunks.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches := r.store.Query(vec, limit)
	docs := make([]string, len(matches))
	for i, m := range matches {
		docs[i] = m.Metadata.Text
	}
	return docs, nil
}
