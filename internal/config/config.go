package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int               `json:"port"`
	CORSOrigins []string          `json:"cors_origins"`
	LogConfig   logger.LogConfig  `json:"log_config"`
	AI          AIConfig          `json:"ai"`
	VectorIndex VectorIndexConfig `json:"vector_index"`
	Archive     ArchiveConfig     `json:"archive"`
	Ingest      IngestConfig      `json:"ingest"`
	Query       QueryConfig       `json:"query"`
}

type AIConfig struct {
	Provider           string      `json:"provider"`
	Data               interface{} `json:"data"`
	GenerateModel      string      `json:"generate_model"`
	EmbedModel         string      `json:"embed_model"`
	EmbedDimension     int         `json:"embed_dimension"`
	TimeoutSeconds     int         `json:"timeout_seconds"`
	EmbedCacheSize     int         `json:"embed_cache_size"`
	EmbedCacheTTLHours int         `json:"embed_cache_ttl_hours"`
}

type VectorIndexConfig struct {
	Type           string      `json:"type"`
	ResetOnStartup bool        `json:"reset_on_startup"`
	Data           interface{} `json:"data"`
}

// Archive is optional; an empty type disables raw-upload archiving.
type ArchiveConfig struct {
	Type              string      `json:"type"`
	Data              interface{} `json:"data"`
	CleanupMaxAgeDays int         `json:"cleanup_max_age_days"`
}

type IngestConfig struct {
	TextWindow       int `json:"text_window"`
	TextOverlap      int `json:"text_overlap"`
	Window           int `json:"window"`
	Overlap          int `json:"overlap"`
	MaxMetadataChars int `json:"max_metadata_chars"`
}

type QueryConfig struct {
	TopK    int `json:"top_k"`
	MaxTopK int `json:"max_top_k"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Secrets like ${GEMINI_API_KEY} stay in the environment.
	expanded := os.ExpandEnv(string(raw))

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 5000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.GenerateModel == "" {
		return nil, fmt.Errorf("ai.generate_model is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 384
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 10000
	}
	if cfg.AI.EmbedCacheTTLHours == 0 {
		cfg.AI.EmbedCacheTTLHours = 2
	}
	if cfg.VectorIndex.Type == "" {
		return nil, fmt.Errorf("vector_index.type is required")
	}
	if cfg.Archive.Type != "" && cfg.Archive.CleanupMaxAgeDays == 0 {
		cfg.Archive.CleanupMaxAgeDays = 30
	}
	applyIngestDefaults(&cfg.Ingest)
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 40
	}
	if cfg.Query.MaxTopK == 0 {
		cfg.Query.MaxTopK = 100
	}
	return &cfg, nil
}

func applyIngestDefaults(c *IngestConfig) {
	if c.TextWindow == 0 {
		c.TextWindow = 350
	}
	if c.TextOverlap == 0 {
		c.TextOverlap = 120
	}
	if c.Window == 0 {
		c.Window = 750
	}
	if c.Overlap == 0 {
		c.Overlap = 150
	}
	if c.MaxMetadataChars == 0 {
		c.MaxMetadataChars = 1000
	}
}
