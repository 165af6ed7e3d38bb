package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient implements core.LLMClient using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	classifier    *genai.GenerativeModel
	generator     *genai.GenerativeModel
	embedder      *genai.EmbeddingModel
	modelName     string
	maxBodyLength int
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// Options configures a GeminiClient
type Options struct {
	APIKey         string
	ModelName      string
	EmbeddingModel string
	MaxTokens      int
	Temperature    float32
	TopP           float32
	MaxBodyLength  int
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(opts Options, textProcessor *utils.TextProcessor, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Labels are a couple of tokens; keep the classifier deterministic and short.
	classifier := client.GenerativeModel(opts.ModelName)
	classifier.SetTemperature(0)
	classifier.SetMaxOutputTokens(10)

	generator := client.GenerativeModel(opts.ModelName)
	generator.SetTemperature(opts.Temperature)
	generator.SetTopP(opts.TopP)
	if opts.MaxTokens > 0 {
		generator.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	return &GeminiClient{
		client:        client,
		classifier:    classifier,
		generator:     generator,
		embedder:      client.EmbeddingModel(opts.EmbeddingModel),
		modelName:     opts.ModelName,
		maxBodyLength: opts.MaxBodyLength,
		textProcessor: textProcessor,
		logger:        logger,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify asks the model for a single label
func (c *GeminiClient) Classify(ctx context.Context, text string) (string, error) {
	prompt := core.ClassificationPrompt(c.textProcessor.ProcessText(text, c.maxBodyLength))

	out, err := c.generate(ctx, c.classifier, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrClassification, err)
	}
	c.logger.Debug("Gemini classification", zap.String("model", c.modelName), zap.String("raw", out))
	return strings.TrimSpace(out), nil
}

// Generate drafts text for prompt
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.generate(ctx, c.generator, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	return out, nil
}

// Embed returns the embedding of text
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed content with Gemini: %w", core.ErrEmbedding, err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from Gemini", core.ErrEmbedding)
	}
	return res.Embedding.Values, nil
}

func (c *GeminiClient) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
