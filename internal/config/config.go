package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port             int              `json:"port"`
	CORSAllowOrigins []string         `json:"cors_allow_origins"`
	Database         DatabaseConfig   `json:"database"`
	LogConfig        logger.LogConfig `json:"log_config"`
	AI               AIConfig         `json:"ai"`
	Search           SearchConfig     `json:"search"`
	Answer           AnswerConfig     `json:"answer"`
	Index            IndexConfig      `json:"index"`
	Jobs             JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type AIConfig struct {
	Provider      string             `json:"provider"`
	Data          interface{}        `json:"data"`
	Model         string             `json:"model"`
	EmbedProvider string             `json:"embed_provider"`
	EmbedData     interface{}        `json:"embed_data"`
	EmbedModel    string             `json:"embed_model"`
	EmbedDim      int                `json:"embed_dim"`
	Timeout       int                `json:"timeout"`
	MaxTokens     int                `json:"max_tokens"`
	MaxInputChars int                `json:"max_input_chars"`
	Fallbacks     []AIFallbackConfig `json:"fallbacks,omitempty"`
}

// AIFallbackConfig is a secondary provider tried when the one before it
// fails. Fallback embed providers must serve the same embedding model as
// the primary or cached vectors become incomparable.
type AIFallbackConfig struct {
	Provider   string      `json:"provider"`
	Data       interface{} `json:"data"`
	Model      string      `json:"model"`
	EmbedModel string      `json:"embed_model"`
}

// SearchConfig carries the ranking policy knobs. The similarity thresholds and
// boost multipliers are tuned values, not invariants; they are configurable so
// deployments can validate them against their own labeled query sets.
type SearchConfig struct {
	DefaultTopK       int     `json:"default_top_k"`
	MaxTopK           int     `json:"max_top_k"`
	PersonThreshold   float64 `json:"person_threshold"`
	GeneralThreshold  float64 `json:"general_threshold"`
	CombinedThreshold float64 `json:"combined_threshold"`
	SimilarThreshold  float64 `json:"similar_threshold"`
	LabelBoost        float64 `json:"label_boost"`
	MentionBoost      float64 `json:"mention_boost"`
	SummarySample     int     `json:"summary_sample"`
	DefaultRecentDays int     `json:"default_recent_days"`
	ScanLimit         int     `json:"scan_limit"`
	UrgentWindowDays  int     `json:"urgent_window_days"`
}

type AnswerConfig struct {
	CacheSize        int `json:"cache_size"`
	CacheTTLMinutes  int `json:"cache_ttl_minutes"`
	RateLimitSeconds int `json:"rate_limit_seconds"`
}

type IndexConfig struct {
	ChunkTokens      int `json:"chunk_tokens"`
	EmbedConcurrency int `json:"embed_concurrency"`
	CacheSize        int `json:"cache_size"`
	CacheTTLHours    int `json:"cache_ttl_hours"`
	CacheKeepDays    int `json:"cache_keep_days"`
}

type JobsConfig struct {
	ReindexSpec      string `json:"reindex_spec"`
	CacheCleanupSpec string `json:"cache_cleanup_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.DBName == "" {
		return nil, fmt.Errorf("database.dsn or database.dbname is required")
	}
	if cfg.AI.EmbedProvider == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AI.EmbedDim == 0 {
		cfg.AI.EmbedDim = 768
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.MaxInputChars == 0 {
		cfg.AI.MaxInputChars = 16000
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 10
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 100
	}
	if cfg.Search.PersonThreshold == 0 {
		cfg.Search.PersonThreshold = 0.5
	}
	if cfg.Search.GeneralThreshold == 0 {
		cfg.Search.GeneralThreshold = 0.4
	}
	if cfg.Search.CombinedThreshold == 0 {
		cfg.Search.CombinedThreshold = 0.2
	}
	if cfg.Search.SimilarThreshold == 0 {
		cfg.Search.SimilarThreshold = 0.6
	}
	if cfg.Search.LabelBoost == 0 {
		cfg.Search.LabelBoost = 2.0
	}
	if cfg.Search.MentionBoost == 0 {
		cfg.Search.MentionBoost = 1.5
	}
	if cfg.Search.SummarySample == 0 {
		cfg.Search.SummarySample = 50
	}
	if cfg.Search.DefaultRecentDays == 0 {
		cfg.Search.DefaultRecentDays = 7
	}
	if cfg.Search.ScanLimit == 0 {
		cfg.Search.ScanLimit = 2000
	}
	if cfg.Search.UrgentWindowDays == 0 {
		cfg.Search.UrgentWindowDays = 7
	}
	if cfg.Answer.CacheSize == 0 {
		cfg.Answer.CacheSize = 2000
	}
	if cfg.Answer.CacheTTLMinutes == 0 {
		cfg.Answer.CacheTTLMinutes = 15
	}
	if cfg.Answer.RateLimitSeconds == 0 {
		cfg.Answer.RateLimitSeconds = 2
	}
	if cfg.Index.ChunkTokens == 0 {
		cfg.Index.ChunkTokens = 400
	}
	if cfg.Index.EmbedConcurrency == 0 {
		cfg.Index.EmbedConcurrency = 4
	}
	if cfg.Index.CacheSize == 0 {
		cfg.Index.CacheSize = 4096
	}
	if cfg.Index.CacheTTLHours == 0 {
		cfg.Index.CacheTTLHours = 12
	}
	if cfg.Index.CacheKeepDays == 0 {
		cfg.Index.CacheKeepDays = 30
	}
	if cfg.Jobs.ReindexSpec == "" {
		cfg.Jobs.ReindexSpec = "0 3 * * *"
	}
	if cfg.Jobs.CacheCleanupSpec == "" {
		cfg.Jobs.CacheCleanupSpec = "30 4 * * *"
	}
}
