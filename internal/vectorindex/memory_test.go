package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_QueryOrdersByScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "exact", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"text": "a"}},
		{ID: "close", Vector: []float32{1, 0.2, 0}, Metadata: map[string]string{"text": "b"}},
		{ID: "far", Vector: []float32{0, 0, 1}, Metadata: map[string]string{"text": "c"}},
	}))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10, nil, false)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "exact", matches[0].ID)
	require.Equal(t, "close", matches[1].ID)
	require.Equal(t, "far", matches[2].ID)
	require.Nil(t, matches[0].Metadata, "metadata must stay out unless asked for")
}

func TestMemoryStore_TopKTruncates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{0.9, 0.1}},
		{ID: "c", Vector: []float32{0, 1}},
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 2, nil, false)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestMemoryStore_Filter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"file_id": "h1"}},
		{ID: "b", Vector: []float32{0, 1}, Metadata: map[string]string{"file_id": "h2"}},
	}))

	matches, err := store.Query(ctx, []float32{0, 0}, 10, Filter{"file_id": "h1"}, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "a", matches[0].ID)
	require.Equal(t, "h1", matches[0].Metadata["file_id"])

	matches, err = store.Query(ctx, []float32{0, 0}, 10, Filter{"file_id": "missing"}, false)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]string{"text": "old"}},
	}))
	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a", Vector: []float32{0, 1}, Metadata: map[string]string{"text": "new"}},
	}))

	matches, err := store.Query(ctx, []float32{0, 1}, 10, nil, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "new", matches[0].Metadata["text"])
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	err := store.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}})
	require.Error(t, err)

	_, err = store.Query(ctx, []float32{1, 0}, 10, nil, false)
	require.Error(t, err)
}

func TestMemoryStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []Record{{ID: "a", Vector: []float32{1, 0}}}))
	require.NoError(t, store.DeleteAll(ctx))

	matches, err := store.Query(ctx, []float32{1, 0}, 10, nil, false)
	require.NoError(t, err)
	require.Empty(t, matches)
}
