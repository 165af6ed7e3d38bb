package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient implements core.LLMClient using OpenAI
type OpenAIClient struct {
	client         *openai.Client
	modelName      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	topP           float32
	maxBodyLength  int
	textProcessor  *utils.TextProcessor
	logger         *zap.Logger
}

// Options configures an OpenAIClient
type Options struct {
	APIKey         string
	BaseURL        string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxBodyLength  int
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(opts Options, textProcessor *utils.TextProcessor, logger *zap.Logger) *OpenAIClient {
	clientCfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientCfg),
		modelName:      opts.ModelName,
		embeddingModel: opts.EmbeddingModel,
		maxTokens:      opts.MaxTokens,
		temperature:    opts.Temperature,
		topP:           opts.TopP,
		maxBodyLength:  opts.MaxBodyLength,
		textProcessor:  textProcessor,
		logger:         logger,
	}
}

// Close is a no-op; the HTTP client needs no teardown
func (c *OpenAIClient) Close() error {
	return nil
}

// Classify asks the chat model for a single label
func (c *OpenAIClient) Classify(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: core.ClassificationInstruction(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: "Email:\n" + c.textProcessor.ProcessText(text, c.maxBodyLength),
			},
		},
		MaxTokens:   10,
		Temperature: 0,
	}

	out, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrClassification, err)
	}
	c.logger.Debug("OpenAI classification", zap.String("model", c.modelName), zap.String("raw", out))
	return strings.TrimSpace(out), nil
}

// Generate drafts text for prompt
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	out, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	return out, nil
}

// Embed returns the embedding of text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create embedding with OpenAI: %w", core.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from OpenAI", core.ErrEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
