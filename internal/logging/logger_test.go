package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty", Format: "console"})
	assert.Error(t, err)
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.log")
	logger, err := New(config.LogConfig{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("🧹 cleanup finished", zap.Int("merged", 3))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"merged":3`)
	assert.Contains(t, string(data), "cleanup finished")
}

func TestMustFallsBack(t *testing.T) {
	logger := Must(config.LogConfig{Level: "chatty", Format: "console"})
	assert.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
