package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Record is one stored vector plus its metadata.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is one query result, most similar first.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter is an equality predicate over metadata fields; all entries must match.
type Filter map[string]string

type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter, includeMetadata bool) ([]Match, error)
	DeleteAll(ctx context.Context) error
}

type Factory func(args interface{}, dimension int) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(storeType string, args interface{}, dimension int) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(storeType))
	if key == "" {
		return nil, fmt.Errorf("vector_index.type is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector index type: %s", storeType)
	}
	return factory(args, dimension)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vector index config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector index config: %w", err)
	}
	return nil
}
