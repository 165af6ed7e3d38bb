package openai

import (
	"fmt"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	opts          Options
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg config.OpenAIConfig, llm config.LLMConfig, textProcessor *utils.TextProcessor, logger *zap.Logger) *Factory {
	return &Factory{
		opts: Options{
			APIKey:         cfg.APIKey,
			ModelName:      cfg.ModelName,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
			TopP:           cfg.TopP,
			MaxBodyLength:  llm.MaxBodyLength,
		},
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new OpenAIClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	if f.opts.APIKey == "" {
		return nil, fmt.Errorf("openai.api_key is required")
	}
	return NewOpenAIClient(f.opts, f.textProcessor, f.logger.With(zap.String("provider", "openai"))), nil
}
