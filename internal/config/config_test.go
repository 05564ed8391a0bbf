package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETBONS_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.KVBackend)
	assert.Equal(t, "sqlite", cfg.BlobBackend)
	assert.Equal(t, "v5", cfg.KeyVersion)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*1024*1024, cfg.KVQuotaBytes)
	assert.Equal(t, 3, cfg.AIMaxRetries)
	assert.Empty(t, cfg.AIAPIKey)
}

func TestLoadReadsDotenvAndFallbackKey(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env.test")
	require.NoError(t, os.WriteFile(envFile, []byte("NETBONS_KV_BACKEND=memory\nAPI_KEY=secret-from-file\n"), 0o600))

	t.Setenv("NETBONS_ENV_FILE", envFile)
	// godotenv never overrides variables that are already present
	t.Setenv("NETBONS_KV_BACKEND", "")
	t.Setenv("API_KEY", "")
	os.Unsetenv("NETBONS_KV_BACKEND")
	os.Unsetenv("API_KEY")
	t.Cleanup(func() {
		os.Unsetenv("NETBONS_KV_BACKEND")
		os.Unsetenv("API_KEY")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.KVBackend)
	assert.Equal(t, "secret-from-file", cfg.AIAPIKey)
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	base := Config{
		KVBackend:    "file",
		BlobBackend:  "sqlite",
		KeyVersion:   "v5",
		SessionTTL:   time.Hour,
		PlaybackTTL:  time.Minute,
		AIMaxRetries: 1,
	}
	require.NoError(t, base.Validate())

	kv := base
	kv.KVBackend = "indexeddb"
	assert.Error(t, kv.Validate())

	blob := base
	blob.BlobBackend = "s3"
	assert.Error(t, blob.Validate())

	ttl := base
	ttl.SessionTTL = 0
	assert.Error(t, ttl.Validate())

	retries := base
	retries.AIMaxRetries = 0
	assert.Error(t, retries.Validate())
}

func TestKeysAreVersioned(t *testing.T) {
	keys := Keys("v5")
	assert.Equal(t, "netbons_session_v5", keys.Session)
	assert.Equal(t, "netbons_activeProfile_v5", keys.ActiveProfile)
	assert.Equal(t, "netbons_user_movies_v5", keys.Catalog)
	assert.Equal(t, "netbons_current_user_v5", keys.LoggedUser)
	assert.Equal(t, "netbons_registered_users_v5", keys.RegisteredUsers)

	assert.Equal(t, "netbons_session_v6", Keys("v6").Session)
}
