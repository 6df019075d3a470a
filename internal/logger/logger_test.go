package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nerdneilsfield/go-book-translator/internal/logger"
)

func TestNewLoggerLevels(t *testing.T) {
	log := logger.NewLogger(false)
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))

	debug := logger.NewLogger(true)
	require.NotNil(t, debug)
	assert.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}

func TestNewTestLoggerIsSilent(t *testing.T) {
	log := logger.NewTestLogger()
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}
