package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/dmvprep-mailer/internal/config"
	"github.com/unclebandit/dmvprep-mailer/internal/logging"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mailer.log")
	logger := logging.New(config.LogConfig{Level: "warn", File: file})

	logger.Info("dropped")
	logger.Warn("kept", zap.Int64("campaign_id", 7))
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"campaign_id":7`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, logging.OrNop(nil))

	l := zap.NewExample()
	assert.Same(t, l, logging.OrNop(l))
}
