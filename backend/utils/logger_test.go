package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	logger, err := InitLogger()
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "development logger logs debug")

	logger, err = InitLogger(LoggerConfig{Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = InitLogger(LoggerConfig{Level: "error"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = InitLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}
