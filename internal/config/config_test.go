package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LocalBackend(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendLocal, cfg.Backend)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, 2, cfg.SearchMinLength)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORECOUNT_DB", "/tmp/sc.db")
	t.Setenv("STORECOUNT_BACKEND", "REMOTE")
	t.Setenv("STORECOUNT_REMOTE_URL", "http://backend:8787")
	t.Setenv("STORECOUNT_REMOTE_TIMEOUT_MS", "2500")
	t.Setenv("STORECOUNT_USER_ID", "user-7")
	t.Setenv("STORECOUNT_STORE_ID", "store-9")
	t.Setenv("STORECOUNT_LOG_LEVEL", "debug")
	t.Setenv("STORECOUNT_LOG_CALLS", "true")
	t.Setenv("STORECOUNT_SEARCH_MIN_LENGTH", "3")

	cfg := Load()

	assert.Equal(t, "/tmp/sc.db", cfg.DBPath)
	assert.Equal(t, BackendRemote, cfg.Backend)
	assert.Equal(t, "http://backend:8787", cfg.RemoteURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.RemoteTimeout())
	assert.Equal(t, "user-7", cfg.UserID)
	assert.Equal(t, "store-9", cfg.StoreID)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.LogCalls)
	assert.Equal(t, 3, cfg.SearchMinLength)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesIgnored(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORECOUNT_BACKEND", "carrier-pigeon")
	t.Setenv("STORECOUNT_REMOTE_TIMEOUT_MS", "soon")
	t.Setenv("STORECOUNT_LOG_LEVEL", "loud")
	t.Setenv("STORECOUNT_LOG_CALLS", "maybe")
	t.Setenv("STORECOUNT_SEARCH_MIN_LENGTH", "-1")

	cfg := Load()
	def := Default()

	assert.Equal(t, def.Backend, cfg.Backend)
	assert.Equal(t, def.RemoteTimeoutMs, cfg.RemoteTimeoutMs)
	assert.Equal(t, def.LogLevel, cfg.LogLevel)
	assert.False(t, cfg.LogCalls)
	assert.Equal(t, def.SearchMinLength, cfg.SearchMinLength)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STORECOUNT_COMPANY_ID=company-42\n"), 0o644))
	// godotenv never overrides a variable that is already set, even to "".
	t.Setenv("STORECOUNT_COMPANY_ID", "")
	require.NoError(t, os.Unsetenv("STORECOUNT_COMPANY_ID"))

	cfg := Load()

	assert.Equal(t, "company-42", cfg.CompanyID)
}

func TestValidate_RemoteRequiresURL(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendRemote
	assert.ErrorIs(t, cfg.Validate(), ErrMissingRemoteURL)
}
