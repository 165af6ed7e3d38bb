package config

import (
	"fmt"
	"time"

	"github.com/mikey/email-onebox/internal/core"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider      string
	Timeout       time.Duration
	MaxBodyLength int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region           string
	ModelID          string
	EmbeddingModelID string
	MaxTokens        int
	Temperature      float32
	TopP             float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
}

// IMAPConfig holds mailbox fetch settings shared by every account.
type IMAPConfig struct {
	Window    int
	Timeout   time.Duration
	FetchBody bool
}

// SyncConfig controls the account sync loop.
type SyncConfig struct {
	Interval    time.Duration
	Concurrency int
	Buffer      int
}

// ClassificationConfig controls the classification gateway.
type ClassificationConfig struct {
	StrictLabels  bool
	RatePerSecond float64
	SenderRules   map[string]string
}

// ResilienceConfig bounds retries and the circuit breaker around provider calls.
type ResilienceConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// IndexConfig selects and configures the message index.
type IndexConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
	PageSize   int
}

// VectorConfig selects and configures the vector similarity store.
type VectorConfig struct {
	Type       string
	SQLitePath string
	Distance   string
}

// ReplyConfig configures reply suggestion.
type ReplyConfig struct {
	Collection   string
	TrainingFile string
	SeedOnStart  bool
}

// SMTPConfig configures the optional email alert sink.
type SMTPConfig struct {
	Addr string
	// StartTLS upgrades the relay connection before authenticating
	StartTLS bool
	Username string
	Password string
	From     string
	To       []string
}

// NotifyConfig configures the notification sinks.
type NotifyConfig struct {
	SlackURL      string
	WebhookURL    string
	TriggerLabels []string
	Timeout       time.Duration
	SMTP          SMTPConfig
}

// ServerConfig configures the HTTP query service.
type ServerConfig struct {
	ListenAddress   string
	AdminToken      string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// CacheConfig configures the label cache.
type CacheConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

type accountEntry struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Folder   string `mapstructure:"folder"`
}

// GetAccounts returns the configured mail accounts in configuration order.
// Entries from the accounts list come first, followed by the numbered
// imap.user_N / imap.pass_N pairs (ONEBOX_IMAP_USER_1 and so on).
func (c *Config) GetAccounts() ([]core.Account, error) {
	var entries []accountEntry
	if err := c.v.UnmarshalKey("accounts", &entries); err != nil {
		return nil, fmt.Errorf("failed to parse accounts: %w", err)
	}

	for i := 1; ; i++ {
		user := c.GetString(fmt.Sprintf("imap.user_%d", i))
		if user == "" {
			break
		}
		entries = append(entries, accountEntry{
			User:     user,
			Password: c.GetString(fmt.Sprintf("imap.pass_%d", i)),
		})
	}

	accounts := make([]core.Account, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.User == "" {
			return nil, fmt.Errorf("account %d: user is required", i+1)
		}
		if e.Host == "" {
			e.Host = c.GetString("imap.default_host")
		}
		if e.Port == 0 {
			e.Port = c.GetInt("imap.default_port")
		}
		if e.Folder == "" {
			e.Folder = c.GetString("imap.default_folder")
		}
		acct := core.Account{
			User:     e.User,
			Password: e.Password,
			Host:     e.Host,
			Port:     e.Port,
			Folder:   e.Folder,
		}
		if seen[acct.ID()] {
			return nil, fmt.Errorf("account %s configured twice", acct.ID())
		}
		seen[acct.ID()] = true
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		Timeout:       c.durationOr("llm.timeout", 30*time.Second),
		MaxBodyLength: c.GetInt("llm.max_body_length"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:           c.GetString("bedrock.region"),
		ModelID:          c.GetString("bedrock.model_id"),
		EmbeddingModelID: c.GetString("bedrock.embedding_model_id"),
		MaxTokens:        c.GetInt("bedrock.max_tokens"),
		Temperature:      float32(c.GetFloat64("bedrock.temperature")),
		TopP:             float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.GetString("gemini.api_key"),
		ModelName:      c.GetString("gemini.model_name"),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
		MaxTokens:      c.GetInt("gemini.max_tokens"),
		Temperature:    float32(c.GetFloat64("gemini.temperature")),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		EmbeddingModel: c.GetString("openai.embedding_model"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		TopP:           float32(c.GetFloat64("openai.top_p")),
	}
}

// GetIMAP returns the mailbox fetch settings
func (c *Config) GetIMAP() IMAPConfig {
	window := c.GetInt("imap.window")
	if window <= 0 {
		window = 6
	}
	return IMAPConfig{
		Window:    window,
		Timeout:   c.durationOr("imap.timeout", 30*time.Second),
		FetchBody: c.GetBool("imap.fetch_body"),
	}
}

// GetSync returns the sync loop settings
func (c *Config) GetSync() SyncConfig {
	concurrency := c.GetInt("sync.concurrency")
	if concurrency <= 0 {
		concurrency = 1
	}
	return SyncConfig{
		Interval:    c.durationOr("sync.interval", 5*time.Minute),
		Concurrency: concurrency,
		Buffer:      c.GetInt("sync.buffer"),
	}
}

// GetClassification returns the classification gateway settings
func (c *Config) GetClassification() ClassificationConfig {
	return ClassificationConfig{
		StrictLabels:  c.GetBool("classification.strict_labels"),
		RatePerSecond: c.GetFloat64("classification.rate_per_second"),
		SenderRules:   c.v.GetStringMapString("classification.sender_rules"),
	}
}

// GetResilience returns the retry and breaker settings
func (c *Config) GetResilience() ResilienceConfig {
	return ResilienceConfig{
		MaxRetries:      c.GetInt("resilience.max_retries"),
		InitialInterval: c.durationOr("resilience.initial_interval", 500*time.Millisecond),
		MaxInterval:     c.durationOr("resilience.max_interval", 5*time.Second),
		BreakerFailures: c.GetInt("resilience.breaker_failures"),
		BreakerTimeout:  c.durationOr("resilience.breaker_timeout", 30*time.Second),
	}
}

// GetIndex returns the index store settings
func (c *Config) GetIndex() IndexConfig {
	pageSize := c.GetInt("index.page_size")
	if pageSize <= 0 || pageSize > core.MaxPageSize {
		pageSize = core.MaxPageSize
	}
	return IndexConfig{
		Type:       c.GetString("index.type"),
		SQLitePath: c.GetString("index.sqlite_path"),
		MySQLDSN:   c.GetString("index.mysql_dsn"),
		PageSize:   pageSize,
	}
}

// GetVector returns the vector store settings
func (c *Config) GetVector() VectorConfig {
	return VectorConfig{
		Type:       c.GetString("vector.type"),
		SQLitePath: c.GetString("vector.sqlite_path"),
		Distance:   c.GetString("vector.distance"),
	}
}

// GetReply returns the reply suggestion settings
func (c *Config) GetReply() ReplyConfig {
	return ReplyConfig{
		Collection:   c.GetString("reply.collection"),
		TrainingFile: c.GetString("reply.training_file"),
		SeedOnStart:  c.GetBool("reply.seed_on_start"),
	}
}

// GetNotify returns the notification sink settings
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		SlackURL:      c.GetString("notify.slack_url"),
		WebhookURL:    c.GetString("notify.webhook_url"),
		TriggerLabels: c.GetStringSlice("notify.trigger_labels"),
		Timeout:       c.durationOr("notify.timeout", 10*time.Second),
		SMTP: SMTPConfig{
			Addr:     c.GetString("notify.smtp.addr"),
			Username: c.GetString("notify.smtp.username"),
			Password: c.GetString("notify.smtp.password"),
			From:     c.GetString("notify.smtp.from"),
			To:       c.GetStringSlice("notify.smtp.to"),
		},
	}
}

// GetServer returns the HTTP server settings
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		AdminToken:      c.GetString("server.admin_token"),
		ShutdownTimeout: c.durationOr("server.shutdown_timeout", 10*time.Second),
		AllowedOrigins:  c.GetStringSlice("server.allowed_origins"),
	}
}

// GetCache returns the label cache settings
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              c.durationOr("cache.ttl", 24*time.Hour),
		CleanupFrequency: c.durationOr("cache.cleanup_frequency", time.Hour),
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}
}
