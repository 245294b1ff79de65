// Package config loads FinScout configuration from environment variables
// with the FINSCOUT_ prefix and provides defaults for all optional settings.
// Missing required settings are reported before any network call is made.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the ingestion pipelines.
type Config struct {
	Store       StoreConfig
	Embedding   EmbeddingConfig
	Translation TranslationConfig
	Registry    RegistryConfig
	Roster      RosterConfig
}

// StoreConfig contains upsert store configuration.
type StoreConfig struct {
	Engine         string // storage engine: postgres, sqlite (default: postgres)
	PostgresDSN    string // PostgreSQL connection string (required for postgres)
	SQLitePath     string // SQLite database path (default: ./data/finscout.db)
	WriteBatchSize int    // embedding rows per upsert batch (default: 50)
}

// EmbeddingConfig contains embedding service configuration.
type EmbeddingConfig struct {
	APIKey  string // embedding service credential (required when embeddings are on)
	BaseURL string // override for tests/self-hosted gateways
	Model   string // embedding model name (default set by the client)
	Enabled bool   // embeddings toggle for the company pipeline (default: true)
}

// TranslationConfig contains translation service configuration. The API key
// is optional: without it the translator still runs its heuristic and
// dictionary fallback.
type TranslationConfig struct {
	APIKey  string
	BaseURL string
}

// RegistryConfig contains company registry configuration.
type RegistryConfig struct {
	BaseURL            string // listing+classification service base URL
	ClassificationsURL string // override when classifications live elsewhere
	TargetCount        int    // companies to fetch per run (default: 300)
}

// RosterConfig contains investor roster configuration.
type RosterConfig struct {
	Path string // path to the investor roster JSON (default: ./data/investors.json)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Store: StoreConfig{
			Engine:         getEnv("FINSCOUT_STORE_ENGINE", "postgres"),
			PostgresDSN:    os.Getenv("FINSCOUT_POSTGRES_DSN"),
			SQLitePath:     getEnv("FINSCOUT_SQLITE_PATH", "./data/finscout.db"),
			WriteBatchSize: getEnvInt("FINSCOUT_STORE_BATCH_SIZE", 50),
		},
		Embedding: EmbeddingConfig{
			APIKey:  os.Getenv("FINSCOUT_EMBEDDING_API_KEY"),
			BaseURL: os.Getenv("FINSCOUT_EMBEDDING_URL"),
			Model:   os.Getenv("FINSCOUT_EMBEDDING_MODEL"),
			Enabled: getEnvBool("FINSCOUT_EMBEDDINGS", true),
		},
		Translation: TranslationConfig{
			APIKey:  os.Getenv("FINSCOUT_TRANSLATE_API_KEY"),
			BaseURL: getEnv("FINSCOUT_TRANSLATE_URL", "https://translate.api.cloud.example.com"),
		},
		Registry: RegistryConfig{
			BaseURL:            getEnv("FINSCOUT_REGISTRY_URL", "https://avoindata.prh.fi/opendata-ytj-api/v3"),
			ClassificationsURL: os.Getenv("FINSCOUT_CLASSIFICATIONS_URL"),
			TargetCount:        getEnvInt("FINSCOUT_TARGET_COUNT", 300),
		},
		Roster: RosterConfig{
			Path: getEnv("FINSCOUT_ROSTER_PATH", "./data/investors.json"),
		},
	}

	if cfg.Registry.ClassificationsURL == "" {
		cfg.Registry.ClassificationsURL = cfg.Registry.BaseURL
	}
	return cfg, nil
}

// Validate checks the settings a run requires. needEmbeddings is true when
// the run will call the embedding service.
func (c *Config) Validate(needEmbeddings bool) error {
	switch c.Store.Engine {
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("config: FINSCOUT_POSTGRES_DSN is required for the postgres store engine")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("config: FINSCOUT_SQLITE_PATH must not be empty")
		}
	default:
		return fmt.Errorf("config: unknown store engine %q (want postgres or sqlite)", c.Store.Engine)
	}

	if needEmbeddings && c.Embedding.APIKey == "" {
		return errors.New("config: FINSCOUT_EMBEDDING_API_KEY is required when embeddings are enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
