package config

import (
	"time"
)

// LLMConfig represents the configuration shared by every LLM provider
type LLMConfig struct {
	Provider      string
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffJitter float64
	MaxTextChars  int
	CallTimeout   time.Duration
	Breaker       BreakerConfig
}

// BreakerConfig configures the circuit breaker around provider calls
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// FilterConfig configures the business pre-filter
type FilterConfig struct {
	ScoreThreshold int
	CasualMaxLen   int
}

// NormalizerConfig configures brand matching and variant validation
type NormalizerConfig struct {
	MaxEditDistance int
	MaxRAMGB        int
	ValidStorageGB  []int
}

// DedupConfig configures the processed-message store
type DedupConfig struct {
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	MaxEntries       int
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// SinkConfig configures the relational record sink
type SinkConfig struct {
	Driver          string
	DSN             string
	AutoMigrate     bool
	UsageLogging    bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig configures the inbound message source
type ServerConfig struct {
	Source         string
	ListenAddress  string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// durationOr returns the duration stored at key or fallback when it cannot be parsed
func (c *Config) durationOr(key string, fallback time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return fallback
	}
	return d
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		MaxAttempts:   c.GetInt("llm.max_attempts"),
		BackoffBase:   c.durationOr("llm.backoff_base", 500*time.Millisecond),
		BackoffJitter: c.GetFloat64("llm.backoff_jitter"),
		MaxTextChars:  c.GetInt("llm.max_text_chars"),
		CallTimeout:   c.durationOr("llm.call_timeout", 45*time.Second),
		Breaker: BreakerConfig{
			MaxRequests:         uint32(c.GetInt("llm.breaker.max_requests")),
			Interval:            c.durationOr("llm.breaker.interval", time.Minute),
			Timeout:             c.durationOr("llm.breaker.timeout", 30*time.Second),
			ConsecutiveFailures: uint32(c.GetInt("llm.breaker.consecutive_failures")),
		},
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
	}
}

// GetFilter returns the business filter configuration
func (c *Config) GetFilter() FilterConfig {
	return FilterConfig{
		ScoreThreshold: c.GetInt("filter.score_threshold"),
		CasualMaxLen:   c.GetInt("filter.casual_max_len"),
	}
}

// GetNormalizer returns the normalizer configuration
func (c *Config) GetNormalizer() NormalizerConfig {
	return NormalizerConfig{
		MaxEditDistance: c.GetInt("normalizer.max_edit_distance"),
		MaxRAMGB:        c.GetInt("normalizer.max_ram_gb"),
		ValidStorageGB:  c.GetIntSlice("normalizer.valid_storage_gb"),
	}
}

// GetDedup returns the dedup store configuration
func (c *Config) GetDedup() DedupConfig {
	return DedupConfig{
		Type:             c.GetString("dedup.type"),
		TTL:              c.durationOr("dedup.ttl", 72*time.Hour),
		CleanupFrequency: c.durationOr("dedup.cleanup_frequency", time.Hour),
		MaxEntries:       c.GetInt("dedup.max_entries"),
		SQLitePath:       c.GetString("dedup.sqlite_path"),
		MySQLDSN:         c.GetString("dedup.mysql_dsn"),
		RedisAddr:        c.GetString("dedup.redis_addr"),
		RedisPassword:    c.GetString("dedup.redis_password"),
		RedisDB:          c.GetInt("dedup.redis_db"),
	}
}

// GetSink returns the record sink configuration
func (c *Config) GetSink() SinkConfig {
	return SinkConfig{
		Driver:          c.GetString("sink.driver"),
		DSN:             c.GetString("sink.dsn"),
		AutoMigrate:     c.GetBool("sink.auto_migrate"),
		UsageLogging:    c.GetBool("sink.usage_logging"),
		MaxOpenConns:    c.GetInt("sink.max_open_conns"),
		MaxIdleConns:    c.GetInt("sink.max_idle_conns"),
		ConnMaxLifetime: c.durationOr("sink.conn_max_lifetime", 30*time.Minute),
	}
}

// GetServer returns the inbound server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		Source:         c.GetString("server.source"),
		ListenAddress:  c.GetString("server.listen_address"),
		RequestTimeout: c.durationOr("server.request_timeout", time.Minute),
		MaxBodyBytes:   int64(c.GetInt("server.max_body_bytes")),
	}
}

// ParserConfig configures extraction parsing
type ParserConfig struct {
	MinPrice float64
}

// GetParser returns the parser configuration
func (c *Config) GetParser() ParserConfig {
	return ParserConfig{
		MinPrice: c.GetFloat64("parser.min_price"),
	}
}
