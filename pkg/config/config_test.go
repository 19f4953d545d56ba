package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/promptdeck/pkg/logging"
)

// isolate keeps the developer's own config files out of the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "promptdeck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("PROMPTDECK_TOKEN", "cli-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.Tokens)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "promptdeck.db", cfg.Database.Path)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
	assert.Equal(t, "cli-token", cfg.Client.Token)
	assert.Equal(t, 10, cfg.Pager.PageLimit)
	assert.Equal(t, 300*time.Millisecond, cfg.Pager.Debounce)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 2, cfg.OpenAI.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ALICE_TOKEN", "Secret-Alice")

	path := writeConfig(t, dir, `
server:
  addr: 127.0.0.1:9000
  tokens:
    - token: ${ALICE_TOKEN}
      owner: alice
    - token: Literal-Bob
      owner: bob
    - token: ${UNSET_PROMPTDECK_TEST_TOKEN}
      owner: nobody
database:
  path: /var/lib/promptdeck/data.db
redis:
  addr: localhost:6379
pager:
  page_limit: 25
  debounce: 150ms
log:
  level: debug
  pretty: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, map[string]string{
		"Secret-Alice": "alice",
		"Literal-Bob":  "bob",
	}, cfg.Server.TokenMap())
	assert.Equal(t, "/var/lib/promptdeck/data.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 25, cfg.Pager.PageLimit)
	assert.Equal(t, 150*time.Millisecond, cfg.Pager.Debounce)

	logCfg := cfg.Logging()
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.True(t, logCfg.Pretty)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "server:\n  addr: :7000\npager:\n  page_limit: 25\n")

	t.Setenv("PROMPTDECK_SERVER_ADDR", ":9090")
	t.Setenv("PROMPTDECK_PAGER_DEBOUNCE", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 25, cfg.Pager.PageLimit)
	assert.Equal(t, time.Second, cfg.Pager.Debounce)
}

func TestLoad_SearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database:\n  path: found.db\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found.db", cfg.Database.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load("/nonexistent/promptdeck.yaml")
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"page limit zero", "pager:\n  page_limit: 0\n"},
		{"page limit too large", "pager:\n  page_limit: 101\n"},
		{"negative debounce", "pager:\n  debounce: -1s\n"},
		{"unknown log level", "log:\n  level: verbose\n"},
		{"token without owner", "server:\n  tokens:\n    - token: abc\n"},
		{"zero burst", "rate_limit:\n  burst: 0\n"},
		{"negative openai retries", "openai:\n  max_retries: -1\n"},
		{"empty database path", "database:\n  path: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			_, err := Load(writeConfig(t, dir, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "${PROMPTDECK_TOKEN}")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Pager.PageLimit)
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("PROMPTDECK_TEST_SECRET", "s3cret")

	assert.Equal(t, "s3cret", ResolveEnvVars("${PROMPTDECK_TEST_SECRET}"))
	assert.Equal(t, "Bearer s3cret", ResolveEnvVars("Bearer ${PROMPTDECK_TEST_SECRET}"))
	assert.Equal(t, "", ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"))
	assert.Equal(t, "literal-value", ResolveEnvVars("literal-value"))
}
