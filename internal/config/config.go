package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	Database   DatabaseConfig   `json:"database"`
	LogConfig  logger.LogConfig `json:"log_config"`
	AI         AIConfig         `json:"ai"`
	RAG        RAGConfig        `json:"rag"`
	Chat       ChatConfig       `json:"chat"`
	Booking    BookingConfig    `json:"booking"`
	EmbedCache EmbedCacheConfig `json:"embed_cache"`
	Jobs       JobsConfig       `json:"jobs"`
	Archive    ArchiveConfig    `json:"archive"`
	CORS       []string         `json:"cors_allow_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider    string      `json:"provider"`
	Model       string      `json:"model"`
	EmbedModel  string      `json:"embed_model"`
	Temperature float64     `json:"temperature"`
	Data        interface{} `json:"data"`
}

type RAGConfig struct {
	TopK           int     `json:"top_k"`
	Threshold      float64 `json:"threshold"`
	WidenTopK      int     `json:"widen_top_k"`
	WidenThreshold float64 `json:"widen_threshold"`
}

type ChatConfig struct {
	SystemPrompt string `json:"system_prompt"`
}

type BookingConfig struct {
	RelayURL string `json:"relay_url"`
	Source   string `json:"source"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size"`
	LRUTTLMinutes int  `json:"lru_ttl_minutes"`
	UseDB         bool `json:"use_db"`
	MaxAgeDays    int  `json:"max_age_days"`
}

type JobsConfig struct {
	BackfillSpec   string `json:"backfill_spec"`
	BackfillBatch  int    `json:"backfill_batch"`
	ReembedSpec    string `json:"reembed_spec"`
	ReembedMinutes int    `json:"reembed_minutes"`
	ArchiveSpec    string `json:"archive_spec"`
	CacheSweepSpec string `json:"cache_sweep_spec"`
}

type ArchiveConfig struct {
	Enable bool        `json:"enable"`
	Type   string      `json:"type"`
	Data   interface{} `json:"data"`
}

const DefaultSystemPrompt = "You are a friendly spa assistant."

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
		cfg.Port = 8090
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-3-small"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.3
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.Threshold <= 0 {
		cfg.RAG.Threshold = 0.72
	}
	if cfg.RAG.WidenTopK <= 0 {
		cfg.RAG.WidenTopK = 8
	}
	if cfg.RAG.WidenThreshold <= 0 {
		cfg.RAG.WidenThreshold = 0.5
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Booking.Source == "" {
		cfg.Booking.Source = "chat-widget"
	}
	if cfg.EmbedCache.LRUSize == 0 {
		cfg.EmbedCache.LRUSize = 4096
	}
	if cfg.EmbedCache.LRUTTLMinutes == 0 {
		cfg.EmbedCache.LRUTTLMinutes = 120
	}
	if cfg.EmbedCache.MaxAgeDays == 0 {
		cfg.EmbedCache.MaxAgeDays = 30
	}
	if cfg.Jobs.BackfillBatch <= 0 {
		cfg.Jobs.BackfillBatch = 64
	}
	if cfg.Jobs.ReembedMinutes <= 0 {
		cfg.Jobs.ReembedMinutes = 15
	}
	if cfg.Archive.Enable && cfg.Archive.Type == "" {
		cfg.Archive.Type = "local"
	}
	return &cfg, nil
}
