package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "be-claims-evaluator", cfg.Service.Name)
	assert.Equal(t, 8002, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
	assert.Equal(t, "gpt-4o", cfg.Extraction.Deployment)
	assert.Equal(t, 144.0, cfg.Extraction.RenderDPI)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
pipeline:
  stage_timeout: 10s
extraction:
  deployment: vision-prod
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CLAIMS_EXTRACTION_API_KEY", "secret")
	t.Setenv("CLAIMS_SYNC_BACKEND_URL", "http://admin:8000")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.StageTimeout)
	assert.Equal(t, "vision-prod", cfg.Extraction.Deployment)
	assert.Equal(t, "secret", cfg.Extraction.APIKey)
	assert.Equal(t, "http://admin:8000", cfg.Sync.BackendURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	cfg.Extraction.Concurrency = 0
	assert.Error(t, cfg.Validate())
}
