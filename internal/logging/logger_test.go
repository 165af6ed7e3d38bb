package logging

import (
	"testing"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger_Level(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("logging.level", "warn")

	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("logging.level", "chatty")
	cfg.Set("logging.format", "console")

	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitConsoleLogger(t *testing.T) {
	logger, err := InitConsoleLogger(true, false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
