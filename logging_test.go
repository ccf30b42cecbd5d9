package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flowsheet.log")
	logger, err := newLogger(path, true)
	require.NoError(t, err)

	logger.Debug("link added", zap.String("from", "b-1"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"link added"`)
	assert.Contains(t, string(data), `"from":"b-1"`)
}

func TestNewLoggerEmptyPath(t *testing.T) {
	logger, err := newLogger("", false)
	require.NoError(t, err)
	assert.NotNil(t, logger)
	logger.Info("dropped")
}
