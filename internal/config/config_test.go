package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevModeAndSecureCookie(t *testing.T) {
	tests := []struct {
		appEnv, debug string
		dev           bool
	}{
		{"", "", false},
		{"production", "", false},
		{"production", "true", true},
		{"development", "", true},
		{"Dev", "", true},
		{"test", "false", true},
		{"staging", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.appEnv+"/"+tt.debug, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.appEnv)
			t.Setenv("DEBUG", tt.debug)
			assert.Equal(t, tt.dev, DevMode())
			assert.Equal(t, !tt.dev, AuthCookieSecure())
		})
	}
}

func TestCookieDefaults(t *testing.T) {
	t.Setenv("AUTH_COOKIE_NAME", "")
	t.Setenv("AUTH_COOKIE_MAX_AGE", "")
	t.Setenv("AUTH_TOKEN_TTL", "")
	assert.Equal(t, "fleema_auth", AuthCookieName())
	assert.Equal(t, 7*24*time.Hour, AuthCookieMaxAge())
	assert.Equal(t, 7*24*time.Hour, AuthTokenTTL())

	t.Setenv("AUTH_COOKIE_MAX_AGE", "3600")
	assert.Equal(t, time.Hour, AuthCookieMaxAge())
	assert.Equal(t, time.Hour, AuthTokenTTL(), "ttl follows the cookie")

	t.Setenv("AUTH_TOKEN_TTL", "0")
	assert.Equal(t, time.Duration(0), AuthTokenTTL())

	t.Setenv("AUTH_TOKEN_TTL", "bogus")
	assert.Equal(t, time.Hour, AuthTokenTTL())
}

func TestStoreBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	assert.Equal(t, BackendPostgres, StoreBackend())
	t.Setenv("STORE_BACKEND", "Memory")
	assert.Equal(t, BackendMemory, StoreBackend())
	t.Setenv("STORE_BACKEND", "sqlite")
	assert.Equal(t, BackendPostgres, StoreBackend())
}

func TestRunMigrations(t *testing.T) {
	t.Setenv("RUN_MIGRATIONS", "")
	assert.True(t, RunMigrations())
	t.Setenv("RUN_MIGRATIONS", "false")
	assert.False(t, RunMigrations())
}

func TestLoadReadsEnvAndSecret(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=9123\n"), 0o600))
	require.NoError(t, os.WriteFile(envFile+".secret", []byte("DATABASE_URL=postgres://secret@db/fleet\n"), 0o600))

	t.Setenv("FLEETCORE_ENV", envFile)
	// Registered with t.Setenv so the values are restored after the test.
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("SERVER_PORT"))
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	require.NoError(t, Load())
	assert.Equal(t, 9123, ServerPort())
	assert.Equal(t, ":9123", ServerAddr())
	assert.Equal(t, "postgres://secret@db/fleet", DatabaseURL())
}
