package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over file values and use the NEWSWIRE_ prefix with underscores
// for nesting, e.g. NEWSWIRE_SERVER_PORT or NEWSWIRE_LLM_GEMINI_API_KEY.
//
// Returns a populated and validated Config, or an error describing the
// first failed validation.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NEWSWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars alone can carry the
		// full configuration.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for everything that has a sensible one.
// Secrets default to empty so the keys are visible to the env override
// machinery; validation still rejects them when left unset.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.api_key", "")

	v.SetDefault("database.url", "")

	v.SetDefault("llm.gemini_api_key", "")

	v.SetDefault("wordpress.url", "")
	v.SetDefault("wordpress.api_key", "")

	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_content_length", 4000)

	v.SetDefault("wordpress.default_status", "publish")
	v.SetDefault("wordpress.timeout", 30*time.Second)

	v.SetDefault("scraper.schema_dir", "schemas")
	v.SetDefault("scraper.timeout", 30*time.Second)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}
