package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerReturnsConsoleLogger(t *testing.T) {
	logger := GetLogger()
	require.NotNil(t, logger)

	// Same instance on repeated calls
	assert.Equal(t, logger, GetLogger())
}

func TestInitLoggerConsoleOutput(t *testing.T) {
	config := DefaultConfig()
	config.Logging.Level = "debug"
	config.Logging.Output = []string{"stdout"}

	logger := InitLogger(config)
	require.NotNil(t, logger)

	logger.Debug().Str("check", "console").Msg("logger smoke test")
}

func TestInitLoggerFileOutput(t *testing.T) {
	config := DefaultConfig()
	config.Logging.Output = []string{"file", "stdout"}

	logger := InitLogger(config)
	require.NotNil(t, logger)

	logger.Info().Str("check", "file").Msg("logger smoke test")
}
