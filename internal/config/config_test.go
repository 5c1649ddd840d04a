// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, durations, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  allowed_chats: [1, 2]

rzd:
  suggest_url: "http://localhost:9000/api/v1"
  retry_budget: 3
  poll_interval: "500ms"
  poll_attempts: 7
  request_timeout: "10s"
  user_agents: ["ua-1", "ua-2"]

storage:
  driver: "sqlite"
  path: "/tmp/subs.db"

server:
  http_addr: "127.0.0.1:9999"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{1, 2}, cfg.Telegram.AllowedChats)
	assert.Equal(t, "http://localhost:9000/api/v1", cfg.RZD.SuggestURL)
	assert.Equal(t, 3, cfg.RZD.Retries())
	assert.Equal(t, 500*time.Millisecond, cfg.RZD.PollInterval)
	assert.Equal(t, 7, cfg.RZD.PollAttempts)
	assert.Equal(t, 10*time.Second, cfg.RZD.RequestTimeout)
	assert.Equal(t, []string{"ua-1", "ua-2"}, cfg.RZD.UserAgents)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/subs.db", cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.ValidateBot())
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[telegram]
token = "123:abc"
allowed_chats = [42]

[rzd]
retry_budget = 0
poll_interval = "1s"

[storage]
driver = "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, cfg.Telegram.AllowedChats)
	assert.Equal(t, 0, cfg.RZD.Retries(), "explicit zero disables retries")
	assert.Equal(t, time.Second, cfg.RZD.PollInterval)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Empty(t, cfg.Storage.Path)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	path := writeConfig(t, "config.yaml", "telegram:\n  token: x\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultRetryBudget, cfg.RZD.Retries())
	assert.Equal(t, DefaultPollAttempts, cfg.RZD.PollAttempts)
	assert.Equal(t, DefaultPollInterval, cfg.RZD.PollInterval)
	assert.Equal(t, DefaultRequestTimeout, cfg.RZD.RequestTimeout)
	assert.Equal(t, "купе", cfg.RZD.CompartmentType)
	assert.Equal(t, "badger", cfg.Storage.Driver)
	assert.Equal(t, filepath.Join("/data", AppName, "badger"), cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Empty(t, cfg.Server.HTTPAddr)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_RAIL_TOKEN", "from-env")
	path := writeConfig(t, "config.yaml", `telegram:
  token: "${TEST_RAIL_TOKEN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
}

func TestLoad_UnsetVarExpandsEmpty(t *testing.T) {
	path := writeConfig(t, "config.yaml", `telegram:
  token: "${TEST_RAIL_DEFINITELY_UNSET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Telegram.Token)
	assert.EqualError(t, cfg.ValidateBot(), "telegram.token is required")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoad_InvalidSyntax(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "telegram: [unclosed"))
	assert.ErrorContains(t, err, "parsing config file")

	_, err = Load(writeConfig(t, "config.toml", "[telegram\n"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "config.yaml", "rzd:\n  poll_interval: soon\n"))
	assert.ErrorContains(t, err, "poll_interval")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad scheme", "rzd:\n  pass_url: ftp://x\n", "rzd.pass_url must use http or https"},
		{"negative budget", "rzd:\n  retry_budget: -1\n", "retry_budget"},
		{"negative attempts", "rzd:\n  poll_attempts: -2\n", "poll_attempts"},
		{"unknown driver", "storage:\n  driver: postgres\n", "storage.driver"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_ReportsFirstBadURL(t *testing.T) {
	content := "rzd:\n  suggest_url: ftp://a\n  pass_url: ftp://b\n"
	for i := 0; i < 20; i++ {
		_, err := Load(writeConfig(t, "config.yaml", content))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rzd.suggest_url")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_A", "1")
	t.Setenv("TEST_B", "two")

	assert.Equal(t, "1-two-", expandEnvVars("${TEST_A}-${TEST_B}-${TEST_NOT_SET_X}"))
	assert.Equal(t, "no vars", expandEnvVars("no vars"))
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/rail.toml")
	assert.Equal(t, "/etc/rail.toml", Path())

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	assert.Equal(t, filepath.Join("/cfg", AppName, "config.yaml"), Path())
}

func TestDefaultStoragePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", AppName, "subscriptions.db"), DefaultStoragePath("sqlite"))
	assert.Equal(t, filepath.Join("/data", AppName, "badger"), DefaultStoragePath("badger"))
}

func TestWriteTemplate(t *testing.T) {
	t.Setenv("RAIL_SCOUT_TELEGRAM_TOKEN", "tpl-token")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteTemplate(path))
	assert.ErrorContains(t, WriteTemplate(path), "already exists")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tpl-token", cfg.Telegram.Token)
	assert.Equal(t, "127.0.0.1:8088", cfg.Server.HTTPAddr)
}
