package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := New("local", map[string]interface{}{"dir": dir})
	require.NoError(t, err)
	return store, dir
}

func TestLocal_SaveAndOpen(t *testing.T) {
	store, _ := newLocal(t)
	ctx := context.Background()

	content := "archived bytes"
	require.NoError(t, store.Save(ctx, "abc123-doc.txt", strings.NewReader(content), int64(len(content))))

	rc, err := store.Open(ctx, "abc123-doc.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestLocal_RejectsPathKeys(t *testing.T) {
	store, _ := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		err := store.Save(ctx, key, strings.NewReader("x"), 1)
		require.Error(t, err, "key %q must be rejected", key)
	}
}

func TestLocal_RemoveOlderThan(t *testing.T) {
	store, dir := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "old-file", strings.NewReader("old"), 3))
	require.NoError(t, store.Save(ctx, "new-file", strings.NewReader("new"), 3))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old-file"), past, past))

	removed, err := store.RemoveOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Open(ctx, "old-file")
	require.Error(t, err)
	rc, err := store.Open(ctx, "new-file")
	require.NoError(t, err)
	rc.Close()
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("tape", nil)
	require.Error(t, err)
}
