package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile creates a configuration instance reading path, or searching the
// default locations when path is empty
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-lead-router/")
		v.AddConfigPath("$HOME/.llm-lead-router")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("LEAD_ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults and environment
// overrides but no config file
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LEAD_ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.source", "webhook")
	v.SetDefault("server.listen_address", "0.0.0.0:8085")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 1<<20)

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.backoff_base", "500ms")
	v.SetDefault("llm.backoff_jitter", 0.2)
	v.SetDefault("llm.max_text_chars", 1500)
	v.SetDefault("llm.call_timeout", "45s")
	v.SetDefault("llm.breaker.max_requests", 1)
	v.SetDefault("llm.breaker.interval", "60s")
	v.SetDefault("llm.breaker.timeout", "30s")
	v.SetDefault("llm.breaker.consecutive_failures", 5)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1200)
	v.SetDefault("openai.temperature", 0.0)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1200)
	v.SetDefault("bedrock.temperature", 0.0)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1200)
	v.SetDefault("gemini.temperature", 0.0)

	// Pipeline stage defaults
	v.SetDefault("filter.score_threshold", 4)
	v.SetDefault("filter.casual_max_len", 6)
	v.SetDefault("parser.min_price", 100)
	v.SetDefault("normalizer.max_edit_distance", 2)
	v.SetDefault("normalizer.max_ram_gb", 24)
	v.SetDefault("normalizer.valid_storage_gb", []int{16, 32, 64, 128, 256, 512, 1024})

	// Dedup defaults
	v.SetDefault("dedup.type", "memory")
	v.SetDefault("dedup.ttl", "72h")
	v.SetDefault("dedup.cleanup_frequency", "1h")
	v.SetDefault("dedup.max_entries", 100000)
	v.SetDefault("dedup.sqlite_path", "/data/lead_router_dedup.db")
	v.SetDefault("dedup.mysql_dsn", "user:password@tcp(localhost:3306)/lead_router")
	v.SetDefault("dedup.redis_addr", "localhost:6379")
	v.SetDefault("dedup.redis_password", "")
	v.SetDefault("dedup.redis_db", 0)

	// Sink defaults
	v.SetDefault("sink.driver", "postgres")
	v.SetDefault("sink.dsn", "postgres://localhost:5432/lead_router?sslmode=disable")
	v.SetDefault("sink.auto_migrate", true)
	v.SetDefault("sink.usage_logging", true)
	v.SetDefault("sink.max_open_conns", 10)
	v.SetDefault("sink.max_idle_conns", 5)
	v.SetDefault("sink.conn_max_lifetime", "30m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetIntSlice gets an int slice value from the configuration
func (c *Config) GetIntSlice(key string) []int {
	return c.v.GetIntSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
