package ingest

import (
	"context"
	"testing"

	"github.com/ragdex/ragdex/internal/vectorindex"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("same bytes"))
	b := ContentHash([]byte("same bytes"))
	c := ContentHash([]byte("same bytes!"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestDedupGate(t *testing.T) {
	ctx := context.Background()
	store := vectorindex.NewMemoryStore(4)
	gate := NewDedupGate(store, 4)

	hash := ContentHash([]byte("document body"))

	indexed, err := gate.IsAlreadyIndexed(ctx, hash)
	require.NoError(t, err)
	require.False(t, indexed, "empty index must report nothing")

	err = store.Upsert(ctx, []vectorindex.Record{{
		ID:       "batch-0",
		Vector:   []float32{0.1, 0.2, 0.3, 0.4},
		Metadata: map[string]string{MetadataFileID: hash, "source": "doc.txt"},
	}})
	require.NoError(t, err)

	indexed, err = gate.IsAlreadyIndexed(ctx, hash)
	require.NoError(t, err)
	require.True(t, indexed)

	indexed, err = gate.IsAlreadyIndexed(ctx, ContentHash([]byte("other body")))
	require.NoError(t, err)
	require.False(t, indexed, "a different hash must not match")
}
