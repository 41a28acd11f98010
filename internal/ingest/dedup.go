package ingest

import (
	"context"

	"github.com/ragdex/ragdex/internal/vectorindex"
)

// MetadataFileID is the metadata field holding a chunk's content hash.
const MetadataFileID = "file_id"

// DedupGate answers "is this exact file content already indexed?". The index
// only exposes similarity search plus exact-match metadata filters, so the
// point lookup is phrased as a zero-vector top-1 query filtered on the hash.
// If a store ever grows a real key-existence primitive, only this adapter
// needs to change.
type DedupGate struct {
	store     vectorindex.Store
	dimension int
}

func NewDedupGate(store vectorindex.Store, dimension int) *DedupGate {
	return &DedupGate{store: store, dimension: dimension}
}

func (g *DedupGate) IsAlreadyIndexed(ctx context.Context, contentHash string) (bool, error) {
	zero := make([]float32, g.dimension)
	matches, err := g.store.Query(ctx, zero, 1, vectorindex.Filter{MetadataFileID: contentHash}, false)
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
