package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effective-security/mcphub/config"
)

func Test_ServerDefaults(t *testing.T) {
	s := &config.Server{Name: "srv"}
	assert.Equal(t, 30*time.Second, s.RequestTimeout())
	assert.Equal(t, 3, s.Attempts())

	s.Timeout = 5
	s.RetryAttempts = 7
	assert.Equal(t, 5*time.Second, s.RequestTimeout())
	assert.Equal(t, 7, s.Attempts())
}

func Test_StepUpDefaults(t *testing.T) {
	su := &config.StepUp{}
	assert.Equal(t, 15*time.Second, su.Wait())
	assert.Equal(t, 5, su.Budget())

	su.WaitSeconds = 2
	su.MaxRetries = 1
	assert.Equal(t, 2*time.Second, su.Wait())
	assert.Equal(t, 1, su.Budget())
}

func Test_Load(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Servers)

	t.Setenv("TEST_MCP_API_KEY", "sk-123")

	file := filepath.Join(t.TempDir(), "mcphub.yaml")
	content := `
servers:
  - name: knowledge
    endpoint: https://knowledge.example.com/mcp
    api_key: ${TEST_MCP_API_KEY}
    timeout: 10
  - name: mail
    endpoint: https://mail.example.com/mcp
    api_key: key2
    api_key_header: X-Custom-Key
    retry_attempts: 5
step_up:
  redirect_url: https://auth.example.com/step-up
  wait_seconds: 3
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg, err = config.Load(file)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)

	assert.Equal(t, "knowledge", cfg.Servers[0].Name)
	assert.Equal(t, "sk-123", cfg.Servers[0].APIKey)
	assert.Equal(t, 10*time.Second, cfg.Servers[0].RequestTimeout())
	assert.Equal(t, 3, cfg.Servers[0].Attempts())

	assert.Equal(t, "X-Custom-Key", cfg.Servers[1].APIKeyHeader)
	assert.Equal(t, 5, cfg.Servers[1].Attempts())

	assert.Equal(t, "https://auth.example.com/step-up", cfg.StepUp.RedirectURL)
	assert.Equal(t, 3*time.Second, cfg.StepUp.Wait())
	assert.Equal(t, 5, cfg.StepUp.Budget())

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
