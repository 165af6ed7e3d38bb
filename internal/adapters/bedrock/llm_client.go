package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/mikey/email-onebox/internal/utils"
	"go.uber.org/zap"
)

// ModelInvoker is the subset of the Bedrock runtime client in use
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient implements core.LLMClient using Amazon Bedrock
type BedrockClient struct {
	client           ModelInvoker
	modelID          string
	embeddingModelID string
	maxTokens        int
	temperature      float32
	topP             float32
	maxBodyLength    int
	logger           *zap.Logger
	textProcessor    *utils.TextProcessor
}

// Options configures a BedrockClient
type Options struct {
	ModelID          string
	EmbeddingModelID string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	MaxBodyLength    int
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(client ModelInvoker, opts Options, logger *zap.Logger, textProcessor *utils.TextProcessor) *BedrockClient {
	return &BedrockClient{
		client:           client,
		modelID:          opts.ModelID,
		embeddingModelID: opts.EmbeddingModelID,
		maxTokens:        opts.MaxTokens,
		temperature:      opts.Temperature,
		topP:             opts.TopP,
		maxBodyLength:    opts.MaxBodyLength,
		logger:           logger,
		textProcessor:    textProcessor,
	}
}

// Close is a no-op for Bedrock
func (c *BedrockClient) Close() error {
	return nil
}

// Classify asks the text model for a single label
func (c *BedrockClient) Classify(ctx context.Context, text string) (string, error) {
	prompt := core.ClassificationPrompt(c.textProcessor.ProcessText(text, c.maxBodyLength))

	out, err := c.complete(ctx, prompt, 10, 0, 1)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrClassification, err)
	}
	c.logger.Debug("Bedrock classification", zap.String("model", c.modelID), zap.String("raw", out))
	return strings.TrimSpace(out), nil
}

// Generate drafts text for prompt
func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.complete(ctx, prompt, c.maxTokens, c.temperature, c.topP)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}
	return strings.TrimSpace(out), nil
}

// Embed returns a Titan embedding of text
func (c *BedrockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"inputText": text,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request payload: %w", core.ErrEmbedding, err)
	}

	body, err := c.invoke(ctx, c.embeddingModelID, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}

	var titanResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &titanResp); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal embedding response: %w", core.ErrEmbedding, err)
	}
	if len(titanResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding from Bedrock", core.ErrEmbedding)
	}
	return titanResp.Embedding, nil
}

func (c *BedrockClient) complete(ctx context.Context, prompt string, maxTokens int, temperature, topP float32) (string, error) {
	var payload []byte
	var err error

	switch {
	case c.isAnthropicModel():
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               "\n\nHuman: " + prompt + "\n\nAssistant:",
			"max_tokens_to_sample": maxTokens,
			"temperature":          temperature,
			"top_p":                topP,
		})
	case c.isAmazonTitanModel():
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   temperature,
				"topP":          topP,
			},
		})
	default:
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  maxTokens,
			"temperature": temperature,
			"top_p":       topP,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	body, err := c.invoke(ctx, c.modelID, payload)
	if err != nil {
		return "", err
	}
	return c.parseCompletion(body)
}

func (c *BedrockClient) invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model %s: %w", modelID, err)
	}
	return resp.Body, nil
}

func (c *BedrockClient) parseCompletion(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
			if s != "" {
				return s, nil
			}
		}
		return string(body), nil
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
