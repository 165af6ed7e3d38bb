package gemini

import (
	"fmt"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiClient
type Factory struct {
	opts          Options
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewFactory creates a new factory for GeminiClient instances
func NewFactory(cfg config.GeminiConfig, llm config.LLMConfig, textProcessor *utils.TextProcessor, logger *zap.Logger) *Factory {
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
		textProcessor: textProcessor,
		logger:        logger,
	}
}

// CreateLLMClient creates a new GeminiClient
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	if f.opts.APIKey == "" {
		return nil, fmt.Errorf("gemini.api_key is required")
	}
	return NewGeminiClient(f.opts, f.textProcessor, f.logger.With(zap.String("provider", "gemini")))
}
