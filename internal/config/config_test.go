package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "PORT", "IMPORT_BATCH_SIZE", "IMPORT_WORKERS", "IMPORT_ROW_TIMEOUT",
		"PHONE_REGION", "REDIS_ADDRESS", "IMPORT_LOCK_TTL", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, Duration(10*time.Second), cfg.RowTimeout)
	assert.Equal(t, "US", cfg.PhoneRegion)
	assert.Equal(t, Duration(5*time.Minute), cfg.LockTTL)
	assert.Empty(t, cfg.RedisAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	content := `{
		"database_url": "postgres://file",
		"workers": 4,
		"row_timeout": "2s",
		"lock_ttl": 60000000000,
		"phone_region": "gb"
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("IMPORT_BATCH_SIZE", "25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, Duration(2*time.Second), cfg.RowTimeout)
	assert.Equal(t, Duration(time.Minute), cfg.LockTTL)
	assert.Equal(t, "GB", cfg.PhoneRegion)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "invalid JSON", file: `{ invalid json }`, wantErr: "failed to parse config JSON"},
		{name: "bad duration", file: `{"row_timeout": "soon"}`, wantErr: "invalid duration"},
		{name: "bad env int", env: map[string]string{"IMPORT_WORKERS": "many"}, wantErr: "invalid IMPORT_WORKERS"},
		{name: "bad env duration", env: map[string]string{"IMPORT_ROW_TIMEOUT": "10"}, wantErr: "invalid IMPORT_ROW_TIMEOUT"},
		{name: "zero batch", env: map[string]string{"IMPORT_BATCH_SIZE": "0"}, wantErr: "batch_size"},
		{name: "too many workers", env: map[string]string{"IMPORT_WORKERS": "500"}, wantErr: "workers"},
		{name: "bad format", env: map[string]string{"LOG_FORMAT": "xml"}, wantErr: "log_format"},
		{name: "bad region", env: map[string]string{"PHONE_REGION": "USA"}, wantErr: "phone_region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "config.json")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			}

			cfg, err := Load(path)
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("/nonexistent/path/config.json")
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
