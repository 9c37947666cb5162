package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8501, cfg.Http.Port)
	assert.Equal(t, "random_forest", cfg.Model.Type)
	assert.Equal(t, "models/rf_model.json", cfg.Model.Path)
	assert.Equal(t, 30*time.Second, cfg.Http.Timeout)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 9000
  timeout: 5s
model:
  type: decision_tree
  path: models/tree.json
  watch: true
log:
  level: debug
  format: json
`), 0o600))
	t.Setenv("ASTHMA_MODEL_PATH", "/srv/tree.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "decision_tree", cfg.Model.Type)
	assert.Equal(t, "/srv/tree.json", cfg.Model.Path)
	assert.True(t, cfg.Model.Watch)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsUnknownModelType(t *testing.T) {
	t.Setenv("ASTHMA_MODEL_TYPE", "pickle")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("ASTHMA_HTTP_PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)
}
