package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageInMemory, cfg.Storage)
	assert.Equal(t, "./uploads", cfg.BlobDir)
	assert.Equal(t, "/media", cfg.BlobBaseURL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.SubmitRatePerMin)
	assert.False(t, cfg.DBLogSilent)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":                "9000",
		"STORAGE":             "postgres",
		"DATABASE_URL":        "postgres://localhost/places",
		"ADMIN_TOKEN":         "secret",
		"BLOB_BASE_URL":       "https://cdn.example.com/media/",
		"CORS_ORIGINS":        "http://localhost:3000, http://localhost:5173",
		"SUBMIT_RATE_PER_MIN": "3",
		"DB_LOG_SILENT":       "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "secret", cfg.AdminToken)
	assert.Equal(t, "https://cdn.example.com/media", cfg.BlobBaseURL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.SubmitRatePerMin)
	assert.True(t, cfg.DBLogSilent)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn": {"STORAGE": "postgres"},
		"unknown storage":      {"STORAGE": "redis"},
		"bad rate":             {"SUBMIT_RATE_PER_MIN": "0"},
		"bad silent flag":      {"DB_LOG_SILENT": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
