package di

import (
	"io"
	"testing"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags("onebox-classify", []string{
		"-provider", "openai",
		"-openai-api-key", "sk-test",
		"-lenient",
		"-json",
		"-file", "mail.eml",
	}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "openai", flags.Provider)
	assert.True(t, flags.Lenient)
	assert.True(t, flags.JSONOutput)
	assert.Equal(t, "mail.eml", flags.InputFile)

	_, err = ParseFlags("onebox-classify", []string{"-nope"}, io.Discard)
	assert.Error(t, err)
}

func TestCreateConfigFromFlags(t *testing.T) {
	cfg := createConfigFromFlags(&CLIFlags{
		Provider:        "openai",
		OpenAIAPIKey:    "sk-test",
		OpenAIModelName: "gpt-4o-mini",
		MaxTokens:       10,
		MaxBodySize:     512,
		Lenient:         true,
	})

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, 512, cfg.GetLLM().MaxBodyLength)
	assert.Equal(t, "sk-test", cfg.GetOpenAI().APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.GetOpenAI().ModelName)
	assert.False(t, cfg.GetClassification().StrictLabels)
}

func TestClassificationOptions_NoCacheFactory(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	opts := classificationOptions(cfg, nil)
	assert.False(t, opts.CacheEnabled)
	assert.True(t, opts.StrictLabels)
	assert.Equal(t, 5.0, opts.RatePerSecond)
}

func TestBuildCLIContainer_ResolvesFilter(t *testing.T) {
	flags := &CLIFlags{
		Provider:        "openai",
		OpenAIAPIKey:    "sk-test",
		OpenAIModelName: "gpt-3.5-turbo",
		MaxTokens:       10,
	}
	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(service *core.ClassificationService) {
		assert.NotNil(t, service)
	})
	assert.NoError(t, err)
}

func TestBuildContainer_ResolvesStores(t *testing.T) {
	t.Setenv("ONEBOX_GEMINI_API_KEY", "")
	t.Setenv("ONEBOX_OPENAI_API_KEY", "sk-test")
	t.Setenv("ONEBOX_LLM_PROVIDER", "openai")
	t.Setenv("ONEBOX_INDEX_TYPE", "memory")
	t.Setenv("ONEBOX_VECTOR_TYPE", "memory")
	t.Setenv("ONEBOX_CACHE_TYPE", "memory")

	container, err := BuildContainer(Options{ConfigPath: "", Verbose: true})
	require.NoError(t, err)

	err = container.Invoke(func(cfg *config.Config, index core.IndexStore, rules core.SenderRules) {
		assert.Equal(t, "debug", cfg.GetString("logging.level"))
		assert.NotNil(t, index)
		assert.NotNil(t, rules)
	})
	assert.NoError(t, err)
}
