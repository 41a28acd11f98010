package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// memoryStore keeps vectors in process memory. It backs tests and dev setups
// where no Postgres or Qdrant is around.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]Record
}

func init() {
	Register("memory", createMemoryStore)
}

func createMemoryStore(args interface{}, dimension int) (Store, error) {
	_ = args
	return NewMemoryStore(dimension), nil
}

// NewMemoryStore is exported so tests can construct one directly.
func NewMemoryStore(dimension int) Store {
	return &memoryStore{
		dimension: dimension,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Upsert(ctx context.Context, records []Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		if len(rec.Vector) != s.dimension {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), s.dimension)
		}
		clone := Record{
			ID:       rec.ID,
			Vector:   append([]float32(nil), rec.Vector...),
			Metadata: make(map[string]string, len(rec.Metadata)),
		}
		for key, value := range rec.Metadata {
			clone.Metadata[key] = value
		}
		s.records[rec.ID] = clone
	}
	return nil
}

func (s *memoryStore) Query(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error) {
	_ = ctx
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, index expects %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []Match
	for _, rec := range s.records {
		if !matchesFilter(rec.Metadata, filter) {
			continue
		}
		match := Match{ID: rec.ID, Score: cosineSimilarity(vector, rec.Vector)}
		if includeMetadata {
			metadata := make(map[string]string, len(rec.Metadata))
			for key, value := range rec.Metadata {
				metadata[key] = value
			}
			match.Metadata = metadata
		}
		matches = append(matches, match)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *memoryStore) DeleteAll(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

func matchesFilter(metadata map[string]string, filter Filter) bool {
	for key, want := range filter {
		if metadata[key] != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
