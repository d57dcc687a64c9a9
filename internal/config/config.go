// Package config provides configuration management for ScamForge.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lvonguyen/scamforge/internal/scoring"
)

// Config holds all ScamForge configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Scoring    scoring.Config   `yaml:"scoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	PasswordEnv string        `yaml:"password_env"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	SeenKey     string        `yaml:"seen_key"`
	SeenTTL     time.Duration `yaml:"seen_ttl"`
	StatsKey    string        `yaml:"stats_key"`
	StatsTTL    time.Duration `yaml:"stats_ttl"`
}

// Password resolves the Redis password from the configured env var.
func (c RedisConfig) Password() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}

// DatabaseConfig holds Postgres connection settings. The DSN itself comes
// from an env var so credentials never live in the config file.
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSNEnv  string `yaml:"dsn_env"`
}

// DSN resolves the connection string from the configured env var.
func (c DatabaseConfig) DSN() string {
	if c.DSNEnv == "" {
		return ""
	}
	return os.Getenv(c.DSNEnv)
}

// PipelineConfig holds ETL run settings.
type PipelineConfig struct {
	RawDir          string          `yaml:"raw_dir"`
	ExportDir       string          `yaml:"export_dir"`
	ExportJSONL     bool            `yaml:"export_jsonl"`
	ExportCSV       bool            `yaml:"export_csv"`
	ImportChunkSize int             `yaml:"import_chunk_size"`
	Stages          scoring.Options `yaml:"stages"`
}

// SimilarityConfig holds similarity scorer settings.
type SimilarityConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	TopK      int     `yaml:"top_k"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			SeenKey:  "scamforge:seen",
			SeenTTL:  7 * 24 * time.Hour,
			StatsKey: "scamforge:reportstats",
			StatsTTL: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Enabled: false,
			DSNEnv:  "SCAMFORGE_DATABASE_URL",
		},
		Pipeline: PipelineConfig{
			RawDir:          "data/raw",
			ExportDir:       "data/export",
			ExportJSONL:     true,
			ExportCSV:       true,
			ImportChunkSize: 500,
			Stages: scoring.Options{
				Pattern: true,
				Trust:   true,
				Report:  true,
				AI:      true,
			},
		},
		Similarity: SimilarityConfig{
			Enabled:   true,
			Threshold: 0.85,
			TopK:      5,
		},
		Scoring: scoring.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
