package config

import (
	"os"
	"path/filepath"
	"testing"

	"sniffstore/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.BodyLimitMB)
	assert.Equal(t, storage.DriverMinio, cfg.Storage.Driver)
	assert.Equal(t, "uploads", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.ForcePathStyle)
	assert.Equal(t, "env", cfg.Secrets.Provider)
	assert.Equal(t, "STORAGE_ACCESS_KEY", cfg.Secrets.AccessKeyEnv)
	assert.Equal(t, "application/octet-stream", cfg.Detect.DefaultType)
	assert.Equal(t, 512, cfg.Detect.MaxPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("STORAGE_BUCKET", "media")
	t.Setenv("DETECT_MAX_PREFIX", "1024")
	t.Setenv("DATABASE_ENABLED", "true")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, storage.DriverS3, cfg.Storage.Driver)
	assert.Equal(t, "media", cfg.Storage.Bucket)
	assert.Equal(t, 1024, cfg.Detect.MaxPrefix)
	assert.True(t, cfg.Database.Enabled)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=9090\nLOG_FORMAT=console\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"Driver", "STORAGE_DRIVER", "gcs"},
		{"ACL", "STORAGE_DEFAULT_ACL", "everyone"},
		{"FileACL", "STORAGE_FILE_ACL", "owner-only"},
		{"MaxPrefix", "DETECT_MAX_PREFIX", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig(t.TempDir())
			assert.Error(t, err)
		})
	}
}
