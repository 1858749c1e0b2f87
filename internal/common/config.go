package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Claude      ClaudeConfig    `toml:"claude"`
	Ingest      IngestConfig    `toml:"ingest"`
	Credits     CreditsConfig   `toml:"credits"`
	Cleanup     CleanupConfig   `toml:"cleanup"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger  BadgerConfig  `toml:"badger"`
	Objects ObjectsConfig `toml:"objects"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ObjectsConfig configures the filesystem object store for uploaded files
type ObjectsConfig struct {
	Dir string `toml:"dir"` // Root directory for stored objects
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before it is dropped
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
}

// EmbeddingConfig configures the embedding provider adapter
type EmbeddingConfig struct {
	Provider          string  `toml:"provider"`            // "gemini" or "openai"
	Model             string  `toml:"model"`               // Embedding model name
	APIKey            string  `toml:"api_key"`             // Provider API key (env override supported)
	Dimension         int     `toml:"dimension"`           // Embedding vector dimension
	MaxRetries        int     `toml:"max_retries"`         // Bounded retry count for transient provider errors
	RetryBackoff      string  `toml:"retry_backoff"`       // Initial backoff, e.g., "2s"
	RequestsPerSecond float64 `toml:"requests_per_second"` // Outbound rate limit
	Timeout           string  `toml:"timeout"`             // Per-call timeout, e.g., "30s"
}

// ClaudeConfig configures Anthropic Claude used for accurate-mode answer synthesis
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"` // e.g., "60s"
}

// IngestConfig configures chunking and deduplication
type IngestConfig struct {
	ChunkSize          int     `toml:"chunk_size"`          // Maximum chunk size in bytes
	ChunkOverlap       int     `toml:"chunk_overlap"`       // Overlap between consecutive chunks
	DuplicateThreshold float64 `toml:"duplicate_threshold"` // Cosine similarity at or above which a chunk is rejected
	MaxStoreBytes      int64   `toml:"max_store_bytes"`     // Default per-account knowledge base size cap
}

// CreditsConfig configures query and parse billing rates
type CreditsConfig struct {
	FastQueryCost     int64 `toml:"fast_query_cost"`     // Credits per fast-mode query
	AccurateQueryCost int64 `toml:"accurate_query_cost"` // Credits per accurate-mode query
	CheapPerPage      int64 `toml:"cheap_per_page"`      // Credits per page, cheap parse mode
	StandardPerPage   int64 `toml:"standard_per_page"`   // Credits per page, standard parse mode
	PremiumPerPage    int64 `toml:"premium_per_page"`    // Credits per page, premium parse mode
}

// CleanupConfig configures the scheduled orphan-chunk sweep
type CleanupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule format
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns a Config populated with working defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/corpus",
			},
			Objects: ObjectsConfig{
				Dir: "./data/objects",
			},
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       2,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "parse",
		},
		Embedding: EmbeddingConfig{
			Provider:          "gemini",
			Model:             "gemini-embedding-001",
			Dimension:         768,
			MaxRetries:        3,
			RetryBackoff:      "2s",
			RequestsPerSecond: 5,
			Timeout:           "30s",
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
			Timeout:   "60s",
		},
		Ingest: IngestConfig{
			ChunkSize:          2000,
			ChunkOverlap:       200,
			DuplicateThreshold: 0.85,
			MaxStoreBytes:      50 * 1024 * 1024,
		},
		Credits: CreditsConfig{
			FastQueryCost:     1,
			AccurateQueryCost: 5,
			CheapPerPage:      1,
			StandardPerPage:   1,
			PremiumPerPage:    3,
		},
		Cleanup: CleanupConfig{
			Enabled:  false,
			Schedule: "0 0 */6 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from defaults, then merges each TOML file
// in order (later files override earlier ones), then applies env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyFlagOverrides applies command-line flag values over the loaded config.
// Zero values leave the config untouched.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks cross-field constraints that TOML parsing cannot express
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap (%d) must be in [0, chunk_size)", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.DuplicateThreshold < -1 || c.Ingest.DuplicateThreshold > 1 {
		return fmt.Errorf("ingest.duplicate_threshold (%f) must be in [-1, 1]", c.Ingest.DuplicateThreshold)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	return nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CORPUS_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("CORPUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CORPUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("CORPUS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dir := os.Getenv("CORPUS_OBJECTS_DIR"); dir != "" {
		config.Storage.Objects.Dir = dir
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Embedding.Provider == "gemini" {
		config.Embedding.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.Embedding.Provider == "openai" {
		config.Embedding.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}

	if level := os.Getenv("CORPUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
