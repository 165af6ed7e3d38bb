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

// NewFromFile creates a configuration instance reading the given file, or
// searching the default locations when path is empty.
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/email-onebox/")
		v.AddConfigPath("$HOME/.email-onebox")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("ONEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
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

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_body_length", 2000)

	// IMAP defaults
	v.SetDefault("imap.window", 6)
	v.SetDefault("imap.timeout", "30s")
	v.SetDefault("imap.fetch_body", false)
	v.SetDefault("imap.default_host", "imap.gmail.com")
	v.SetDefault("imap.default_port", 993)
	v.SetDefault("imap.default_folder", "INBOX")

	// Sync defaults
	v.SetDefault("sync.interval", "5m")
	v.SetDefault("sync.concurrency", 1)
	v.SetDefault("sync.buffer", 16)

	// Classification defaults
	v.SetDefault("classification.strict_labels", true)
	v.SetDefault("classification.rate_per_second", 5.0)
	v.SetDefault("classification.sender_rules", map[string]string{})

	// Resilience defaults
	v.SetDefault("resilience.max_retries", 3)
	v.SetDefault("resilience.initial_interval", "500ms")
	v.SetDefault("resilience.max_interval", "5s")
	v.SetDefault("resilience.breaker_failures", 5)
	v.SetDefault("resilience.breaker_timeout", "30s")

	// Index defaults
	v.SetDefault("index.type", "sqlite")
	v.SetDefault("index.sqlite_path", "onebox.db")
	v.SetDefault("index.mysql_dsn", "user:password@tcp(localhost:3306)/onebox")
	v.SetDefault("index.page_size", 20)

	// Vector store defaults
	v.SetDefault("vector.type", "sqlite")
	v.SetDefault("vector.sqlite_path", "onebox_vectors.db")
	v.SetDefault("vector.distance", "l2")

	// Reply suggestion defaults
	v.SetDefault("reply.collection", "reply-data")
	v.SetDefault("reply.training_file", "")
	v.SetDefault("reply.seed_on_start", true)

	// Notification defaults
	v.SetDefault("notify.slack_url", "")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.trigger_labels", []string{"Interested"})
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.smtp.addr", "")
	v.SetDefault("notify.smtp.starttls", false)
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "")
	v.SetDefault("notify.smtp.to", []string{})

	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:5000")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.embedding_model_id", "amazon.titan-embed-text-v1")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "embedding-001")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-3.5-turbo")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 0.9)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "onebox_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/onebox")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

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

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// durationOr parses key and falls back to def when it is unset or invalid.
func (c *Config) durationOr(key string, def time.Duration) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Set overrides a single key. Used by command-line flags.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
