package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "CONFIG_PATH", "DATABASE_CONFIG_PATH", "DATABASE_URL",
		"DB_MAX_CONNECTIONS", "SERVER_ADDR", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_WS_CONNECTIONS", "CORS_ALLOWED_ORIGINS",
		"LOG_LEVEL", "AUTH_SERVICE_URL", "PUSH_SERVICE_URL", "PUSH_VAPID_PUBLIC_KEY",
	} {
		t.Setenv(key, "")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	// Пустой каталог: ни config/*.yaml, ни .env не видно.
	chdir(t, t.TempDir())

	cfg := Load()
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 10000, cfg.MaxWSConnections)
	assert.Equal(t, "*", cfg.CORSAllowedOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 20, cfg.DBMaxConnections())
	assert.Contains(t, cfg.DatabaseURL(), "postgres://")
	assert.Empty(t, cfg.AuthServiceURL)
	assert.Empty(t, cfg.PushServiceURL)
}

func TestLoadYAMLThenEnvPriority(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	appYAML := filepath.Join(dir, "api.yaml")
	require.NoError(t, os.WriteFile(appYAML, []byte(
		"server_addr: \":9090\"\nread_timeout: 30\ncors_allowed_origins: \"https://app.example.com\"\nlog_level: debug\n",
	), 0o644))
	dbYAML := filepath.Join(dir, "database.yaml")
	require.NoError(t, os.WriteFile(dbYAML, []byte(
		"database_url: \"postgres://yaml:yaml@db:5432/chats\"\ndb_max_connections: 7\n",
	), 0o644))

	t.Setenv("CONFIG_PATH", appYAML)
	t.Setenv("DATABASE_CONFIG_PATH", dbYAML)

	cfg := Load()
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "https://app.example.com", cfg.CORSAllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://yaml:yaml@db:5432/chats", cfg.DatabaseURL())
	assert.Equal(t, 7, cfg.DBMaxConnections())

	// env важнее YAML.
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("DATABASE_URL", "postgres://env:env@db:5432/chats")
	cfg = Load()
	assert.Equal(t, ":7070", cfg.ServerAddr)
	assert.Equal(t, "postgres://env:env@db:5432/chats", cfg.DatabaseURL())
}

func TestEnvIntFallbackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	assert.Equal(t, 42, envInt("SOME_INT", 42))
	t.Setenv("SOME_INT", "13")
	assert.Equal(t, 13, envInt("SOME_INT", 42))
}

func TestLoadEnvFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# comment\n\nPLAIN=value\nQUOTED=\"with spaces\"\nSINGLE='single'\nEXISTING=from_file\nBROKEN_LINE\n=no_key\n",
	), 0o644))

	t.Setenv("PLAIN", "")
	t.Setenv("QUOTED", "")
	t.Setenv("SINGLE", "")
	t.Setenv("EXISTING", "preset")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	loadEnvFrom(f)

	assert.Equal(t, "value", os.Getenv("PLAIN"))
	assert.Equal(t, "with spaces", os.Getenv("QUOTED"))
	assert.Equal(t, "single", os.Getenv("SINGLE"))
	// Уже заданная переменная окружения не перетирается.
	assert.Equal(t, "preset", os.Getenv("EXISTING"))
}
