package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	region        string
	opts          Options
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg config.BedrockConfig, llm config.LLMConfig, textProcessor *utils.TextProcessor, logger *zap.Logger) *Factory {
	return &Factory{
		region: cfg.Region,
		opts: Options{
			ModelID:          cfg.ModelID,
			EmbeddingModelID: cfg.EmbeddingModelID,
			MaxTokens:        cfg.MaxTokens,
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			MaxBodyLength:    llm.MaxBodyLength,
		},
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateLLMClient loads AWS credentials and creates a Bedrock client
func (f *Factory) CreateLLMClient() (core.LLMClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(f.region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)
	return NewBedrockClient(client, f.opts, f.logger.With(zap.String("provider", "bedrock")), f.textProcessor), nil
}
