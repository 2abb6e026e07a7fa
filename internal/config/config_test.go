package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "discord.com", cfg.Discord.Hostname)
	assert.Equal(t, 10, cfg.Discord.APIVersion)
	assert.Equal(t, 10, cfg.Gateway.Version)
	assert.Equal(t, "json", cfg.Gateway.Encoding)
	assert.Equal(t, "sqlite", cfg.Cache.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Discord, cfg.Discord)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
token: abc123
discord:
  hostname: example.invalid
gateway:
  intents: 513
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Token)
	assert.Equal(t, "example.invalid", cfg.Discord.Hostname)
	assert.Equal(t, 513, cfg.Gateway.Intents)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unspecified fields fall back to defaults
	assert.Equal(t, 10, cfg.Discord.APIVersion)
	assert.Equal(t, "json", cfg.Gateway.Encoding)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "token: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_ExpandsTokenEnvVar(t *testing.T) {
	t.Setenv("OHNO_TEST_TOKEN", "secret-token")
	path := writeConfig(t, "token: ${OHNO_TEST_TOKEN}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Token)
}

func TestLoad_UnsetEnvVarLeftUnchanged(t *testing.T) {
	path := writeConfig(t, "token: ${OHNO_DEFINITELY_UNSET_VAR}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${OHNO_DEFINITELY_UNSET_VAR}", cfg.Token)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OHNO_TOKEN", "env-token")
	t.Setenv("OHNO_LOG_LEVEL", "TRACE")
	t.Setenv("OHNO_GATEWAY_INTENTS", "1")

	path := writeConfig(t, "token: file-token\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Gateway.Intents)
}

func TestLoadRaw_And_SaveRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw := map[string]any{"gateway": map[string]any{"intents": 513}}
	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"gateway", "intents"})
	require.True(t, ok)
	assert.Equal(t, 513, val)
}

func TestLoadRaw_MissingFile(t *testing.T) {
	raw, err := LoadRaw(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, raw)
}
