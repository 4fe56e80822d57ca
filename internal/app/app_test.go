package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Address: "127.0.0.1", Port: 8080, ReadTimeout: 30, WriteTimeout: 30},
		Storage: config.StorageConfig{
			DataDir:    dataDir,
			SQLitePath: filepath.Join(dataDir, "test.db"),
		},
		Assistant: config.AssistantConfig{
			Timezone:        "UTC",
			DefaultDuration: 60,
			UserID:          "default",
		},
	}
}

func TestNew(t *testing.T) {
	app, err := New(testConfig(t), zap.NewNop(), "dev")
	require.NoError(t, err)

	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Extractor)
	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Directory)
	require.NotNil(t, app.Patterns)
	assert.Greater(t, app.Patterns.Len(), 0)
	assert.Equal(t, "dev", app.Version)
}

func TestNewWithDirectory(t *testing.T) {
	cfg := testConfig(t)
	dirFile := filepath.Join(cfg.Storage.DataDir, "people.yaml")
	content := `people:
  john: john@example.com
teams:
  platform:
    - john@example.com
`
	require.NoError(t, os.WriteFile(dirFile, []byte(content), 0644))
	cfg.Assistant.DirectoryPath = dirFile

	app, err := New(cfg, zap.NewNop(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 1, app.Directory.Len())
}

func TestNewFailsOnMissingDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Assistant.DirectoryPath = filepath.Join(cfg.Storage.DataDir, "nope.yaml")

	_, err := New(cfg, zap.NewNop(), "dev")
	assert.Error(t, err)
}

func TestHandleUtterance(t *testing.T) {
	app, err := New(testConfig(t), zap.NewNop(), "dev")
	require.NoError(t, err)

	require.NoError(t, app.handleUtterance("Meeting tomorrow at 3pm"))

	// No resolvable start fails closed.
	assert.Error(t, app.handleUtterance("Meeting whenever"))
}
