package factory

import (
	"fmt"

	"github.com/mikey/email-onebox/internal/adapters/bedrock"
	"github.com/mikey/email-onebox/internal/adapters/gemini"
	"github.com/mikey/email-onebox/internal/adapters/openai"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg.GetBedrock(), llmConfig, f.textProcessor, f.logger).CreateLLMClient()
	case "gemini":
		return gemini.NewFactory(f.cfg.GetGemini(), llmConfig, f.textProcessor, f.logger).CreateLLMClient()
	case "openai":
		return openai.NewFactory(f.cfg.GetOpenAI(), llmConfig, f.textProcessor, f.logger).CreateLLMClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
