package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	WordPress WordPressConfig `mapstructure:"wordpress" validate:"required"`
	Scraper   ScraperConfig   `mapstructure:"scraper"   validate:"required"`
	Task      TaskConfig      `mapstructure:"task"`
}

// ServerConfig contains all HTTP-server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// APIKey, when set, is required in the X-API-Key header of every
	// enqueue endpoint. Read endpoints stay open.
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
	// MigrationsDir is where the goose SQL migrations live.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// LLMConfig contains settings for the Gemini summarizer.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	// Timeout bounds one summarization call; on expiry the summarizer
	// degrades to a fallback summary instead of failing.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxContentLength truncates article text before prompting to keep
	// latency predictable.
	MaxContentLength int `mapstructure:"max_content_length"`
}

// WordPressConfig contains settings for the publish sink webhook.
type WordPressConfig struct {
	URL           string        `mapstructure:"url"            validate:"required,url"`
	APIKey        string        `mapstructure:"api_key"`
	DefaultStatus string        `mapstructure:"default_status" validate:"oneof=publish draft pending"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ScraperConfig contains settings for article extraction.
type ScraperConfig struct {
	// SchemaDir holds the per-site YAML schema files; the file name
	// (without extension) is the schema name accepted by the API.
	SchemaDir string        `mapstructure:"schema_dir" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TaskConfig tunes the task orchestration engine. Zero values fall back to
// the engine defaults.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count"`
	QueueSize   int `mapstructure:"queue_size"`
}
