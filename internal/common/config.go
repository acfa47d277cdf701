package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load.
const EnvPrefix = "BENEFITS_"

const (
	maxConfigFileSize = 1 << 20
	defaultMaxRetries = 2
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	LLM        LLMConfig        `koanf:"llm"`
	Extraction ExtractionConfig `koanf:"extraction"`
	Profiles   ProfilesConfig   `koanf:"profiles"`
	Queue      QueueConfig      `koanf:"queue"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `koanf:"http_addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// DatabaseConfig holds database-related configuration. A DSN starting with
// postgres:// or postgresql:// selects PostgreSQL, anything else is a SQLite path.
type DatabaseConfig struct {
	DSN              string        `koanf:"dsn"`
	MaxConns         int32         `koanf:"max_conns"`
	MinConns         int32         `koanf:"min_conns"`
	MaxConnLifetime  time.Duration `koanf:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `koanf:"max_conn_idle_time"`
	DialTimeout      time.Duration `koanf:"dial_timeout"`
	StatementTimeout time.Duration `koanf:"statement_timeout"`
}

// LLMConfig holds extraction capability configuration
type LLMConfig struct {
	Provider    string        `koanf:"provider"` // openai | ollama
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Temperature float32       `koanf:"temperature"`
	Timeout     time.Duration `koanf:"timeout"`
	RateLimit   float64       `koanf:"rate_limit"` // requests per second
	Burst       int           `koanf:"burst"`
}

// ExtractionConfig holds the pipeline policy knobs.
type ExtractionConfig struct {
	Concurrency     int           `koanf:"concurrency"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	TOCLookahead    int           `koanf:"toc_lookahead"`
	RefillBatchSize int           `koanf:"refill_batch_size"`
	Refill          bool          `koanf:"refill"`
}

// ProfilesConfig points at the company profile files.
type ProfilesConfig struct {
	Dir string `koanf:"dir"`
}

// QueueConfig sizes the background worker queue.
type QueueConfig struct {
	Workers int           `koanf:"workers"`
	Size    int           `koanf:"size"`
	Timeout time.Duration `koanf:"timeout"`
}

// IngestConfig controls document loading.
type IngestConfig struct {
	Pdftotext     string        `koanf:"pdftotext"` // fallback binary for PDFs without a text layer
	MaxFileBytes  int64         `koanf:"max_file_bytes"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// LogConfig selects level and handler format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads configuration from an optional YAML file, then overrides it with
// BENEFITS_* environment variables (BENEFITS_LLM_API_KEY -> llm.api_key),
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	// zero retries is a valid setting, so only an absent key gets the default
	if !k.Exists("extraction.max_retries") {
		cfg.Extraction.MaxRetries = defaultMaxRetries
	}

	if err := cfg.Validate(); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return &cfg, nil
}

// envKey maps BENEFITS_SECTION_FIELD_NAME onto section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "./data/extractions.db"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 1
	}
	if cfg.Database.MaxConnLifetime == 0 {
		cfg.Database.MaxConnLifetime = 30 * time.Minute
	}
	if cfg.Database.MaxConnIdleTime == 0 {
		cfg.Database.MaxConnIdleTime = 5 * time.Minute
	}
	if cfg.Database.DialTimeout == 0 {
		cfg.Database.DialTimeout = 3 * time.Second
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "ollama":
			cfg.LLM.Model = "llama3.1:8b"
		default:
			cfg.LLM.Model = "gpt-4o-mini"
		}
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 45 * time.Second
	}
	if cfg.LLM.RateLimit == 0 {
		cfg.LLM.RateLimit = 5
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 5
	}

	if cfg.Extraction.Concurrency == 0 {
		cfg.Extraction.Concurrency = 4
	}
	if cfg.Extraction.RetryBackoff == 0 {
		cfg.Extraction.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Extraction.TOCLookahead == 0 {
		cfg.Extraction.TOCLookahead = 1500
	}
	if cfg.Extraction.RefillBatchSize == 0 {
		cfg.Extraction.RefillBatchSize = 10
	}

	if cfg.Profiles.Dir == "" {
		cfg.Profiles.Dir = "./configs/profiles"
	}

	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 2
	}
	if cfg.Queue.Size == 0 {
		cfg.Queue.Size = 64
	}
	if cfg.Queue.Timeout == 0 {
		cfg.Queue.Timeout = 10 * time.Minute
	}

	if cfg.Ingest.Pdftotext == "" {
		cfg.Ingest.Pdftotext = "pdftotext"
	}
	if cfg.Ingest.MaxFileBytes == 0 {
		cfg.Ingest.MaxFileBytes = 64 << 20
	}
	if cfg.Ingest.WatchDebounce == 0 {
		cfg.Ingest.WatchDebounce = 750 * time.Millisecond
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("server.http_addr", c.Server.HTTPAddr, Required)
	v.Field("database.dsn", c.Database.DSN, Required)
	v.Field("llm.provider", c.LLM.Provider, OneOf("openai", "ollama"))
	v.Field("llm.model", c.LLM.Model, Required)
	v.Field("llm.rate_limit", c.LLM.RateLimit, Positive)
	v.Field("extraction.concurrency", c.Extraction.Concurrency, Positive)
	v.Field("extraction.toc_lookahead", c.Extraction.TOCLookahead, Positive)
	v.Field("extraction.refill_batch_size", c.Extraction.RefillBatchSize, Positive)
	v.Field("profiles.dir", c.Profiles.Dir, Required)
	v.Field("queue.workers", c.Queue.Workers, Positive)
	v.Field("ingest.max_file_bytes", c.Ingest.MaxFileBytes, Positive)
	if c.Extraction.MaxRetries < 0 {
		v.Fail("extraction.max_retries", c.Extraction.MaxRetries, "must not be negative")
	}
	if c.LLM.Provider == "openai" && strings.TrimSpace(c.LLM.APIKey) == "" {
		v.Fail("llm.api_key", "", "is required for the openai provider")
	}
	return v.Error()
}

// IsPostgres reports whether the DSN targets PostgreSQL.
func (d DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(d.DSN, "postgres://") || strings.HasPrefix(d.DSN, "postgresql://")
}
