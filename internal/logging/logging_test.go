package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("writes json to output path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		logger, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
		require.NoError(t, err)

		Session(logger, "abc").Debug("decoded", zap.Int("records", 3))
		logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		line := string(data)
		assert.True(t, strings.HasPrefix(line, "{"))
		assert.Contains(t, line, `"session":"abc"`)
		assert.Contains(t, line, `"records":3`)
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger, err := New(Config{Level: "loud", OutputPath: filepath.Join(t.TempDir(), "x.log")})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestNewDefault(t *testing.T) {
	assert.NotNil(t, NewDefault())
}
