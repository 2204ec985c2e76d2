package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "/api", cfg.API.Endpoint)
	assert.Equal(t, 32000, cfg.History.TokenLimit)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9000
  read_timeout: 10s
api:
  endpoint: /chat
  timeout: 5s
history:
  token_limit: 4096
  tokenizer_model: gpt-4o
log:
  level: debug
  format: console
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/chat", cfg.API.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 4096, cfg.History.TokenLimit)
	assert.Equal(t, "gpt-4o", cfg.History.TokenizerModel)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 未在文件中出现的字段保留默认值
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9000
`)
	t.Setenv("LUMENFLOW_SERVER_HTTP_PORT", "7070")
	t.Setenv("LUMENFLOW_API_TIMEOUT", "2s")
	t.Setenv("LUMENFLOW_LOG_OUTPUT_PATHS", "stdout, /tmp/lumenflow.log")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"stdout", "/tmp/lumenflow.log"}, cfg.Log.OutputPaths)
}

func TestLoad_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_HISTORY_TOKEN_LIMIT", "1024")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.History.TokenLimit)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestLoad_ValidatorRejects(t *testing.T) {
	wantErr := errors.New("token limit too small")
	_, err := NewLoader().
		WithValidator(func(cfg *Config) error {
			if cfg.History.TokenLimit < 100000 {
				return wantErr
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
}
