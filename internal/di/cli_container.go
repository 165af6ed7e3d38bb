package di

import (
	"flag"
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/factory"
	"github.com/mikey/email-onebox/internal/logging"
	"github.com/mikey/email-onebox/internal/ports"
)

// CLIFlags contains all command line flags for the classify CLI
type CLIFlags struct {
	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Classification flags
	Lenient bool

	// Input and output flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	JSONOutput bool
	ConfigFile string
}

// ParseFlags parses command line arguments into a CLIFlags struct
func ParseFlags(name string, args []string, output io.Writer) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	// LLM provider flags
	fs.StringVar(&flags.Provider, "provider", "gemini", "LLM provider (bedrock, gemini, openai)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 10, "Maximum tokens for the label response")
	fs.Float64Var(&flags.Temperature, "temperature", 0, "Temperature for LLM generation")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 2000, "Maximum email body size to send to the LLM")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-3.5-turbo", "OpenAI model name")

	// Classification flags
	fs.BoolVar(&flags.Lenient, "lenient", false, "Accept labels outside the taxonomy")

	// Input and output flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.BoolVar(&flags.JSONOutput, "json", false, "Print the result as JSON")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the classify CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			cfg.Set("cli.verbose", flags.Verbose)
			cfg.Set("cli.json", flags.JSONOutput)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register classification service with no cache
	if err := container.Provide(func(
		cfg *config.Config,
		llmClient core.LLMClient,
		senderRules core.SenderRules,
		guards *Guards,
		logger *zap.Logger,
	) *core.ClassificationService {
		return core.NewClassificationService(
			llmClient,
			nil, // No cache for CLI
			senderRules,
			guards.Classify,
			logger,
			classificationOptions(cfg, nil),
		)
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) ports.EmailFilter {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cli.json", flags.JSONOutput)

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)
	v.Set("llm.max_body_length", flags.MaxBodySize)
	v.Set("classification.strict_labels", !flags.Lenient)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
	}

	return config.NewFromViper(v)
}
