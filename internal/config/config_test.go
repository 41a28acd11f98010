package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {
			"provider": "gemini",
			"generate_model": "gemini-2.0-flash",
			"embed_model": "text-embedding-004"
		},
		"vector_index": {"type": "memory"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5000, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 384, cfg.AI.EmbedDimension)
	require.Equal(t, 60, cfg.AI.TimeoutSeconds)
	require.Equal(t, 10000, cfg.AI.EmbedCacheSize)
	require.Equal(t, 2, cfg.AI.EmbedCacheTTLHours)
	require.Equal(t, 350, cfg.Ingest.TextWindow)
	require.Equal(t, 120, cfg.Ingest.TextOverlap)
	require.Equal(t, 750, cfg.Ingest.Window)
	require.Equal(t, 150, cfg.Ingest.Overlap)
	require.Equal(t, 1000, cfg.Ingest.MaxMetadataChars)
	require.Equal(t, 40, cfg.Query.TopK)
	require.Equal(t, 100, cfg.Query.MaxTopK)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret-value")
	path := writeConfig(t, `{
		"ai": {
			"provider": "gemini",
			"data": {"api_key": "${TEST_API_KEY}"},
			"generate_model": "g",
			"embed_model": "e"
		},
		"vector_index": {"type": "memory"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	data, ok := cfg.AI.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "secret-value", data["api_key"])
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing provider",
			content: `{"ai": {"generate_model": "g", "embed_model": "e"}, "vector_index": {"type": "memory"}}`,
		},
		{
			name:    "missing generate model",
			content: `{"ai": {"provider": "gemini", "embed_model": "e"}, "vector_index": {"type": "memory"}}`,
		},
		{
			name:    "missing embed model",
			content: `{"ai": {"provider": "gemini", "generate_model": "g"}, "vector_index": {"type": "memory"}}`,
		},
		{
			name:    "missing index type",
			content: `{"ai": {"provider": "gemini", "generate_model": "g", "embed_model": "e"}}`,
		},
		{
			name:    "malformed json",
			content: `{"port":`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoad_ArchiveCleanupDefault(t *testing.T) {
	path := writeConfig(t, `{
		"ai": {"provider": "gemini", "generate_model": "g", "embed_model": "e"},
		"vector_index": {"type": "memory"},
		"archive": {"type": "local", "data": {"dir": "/tmp/archive"}}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Archive.CleanupMaxAgeDays)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
