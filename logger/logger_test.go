package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"eodsync/config"
	"eodsync/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNewRejectsBadLevel
func TestNewRejectsBadLevel(t *testing.T) {
	_, err := logger.New(config.LogConfig{Level: "loud", Format: "console", Environment: "dev"})
	assert.Error(t, err)
}

// go test -v --run TestNewWritesFile
func TestNewWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "logs", "eodsync.log")

	log, err := logger.New(config.LogConfig{Level: "info", Format: "json", Environment: "prod", OutputFile: out})
	require.NoError(t, err)

	log, runID := logger.WithRun(log)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"msg":"hello"`)
	assert.Contains(t, string(body), runID)
}
