package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: retention-proxy\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultInferenceBaseURL, cfg.Inference.BaseURL)
	assert.Equal(t, DefaultInferenceTimeout, cfg.Inference.Timeout)
	assert.Equal(t, 5*time.Second, GetDuration(cfg.Inference.Timeout))
	assert.Equal(t, DatasetSourceFile, cfg.Dataset.Source)
	assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
	assert.False(t, cfg.Dataset.Watch)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Server.CORSOrigins)
}

func TestLoadFromFile_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  cors_origins: ["http://example.test"]
inference:
  base_url: http://model:8000
  timeout: 1500
dataset:
  source: redis
  redis_key: features:v2
metrics:
  enabled: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://example.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "http://model:8000", cfg.Inference.BaseURL)
	assert.Equal(t, 1500, cfg.Inference.Timeout)
	assert.Equal(t, DatasetSourceRedis, cfg.Dataset.Source)
	assert.Equal(t, "features:v2", cfg.Dataset.RedisKey)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("MODEL_SERVICE_URL", "http://inference.internal:9000")
	t.Setenv("INFERENCE_TIMEOUT", "2500")
	t.Setenv("USERS_FEATURES_PATH", "/srv/data/features.json")

	path := writeConfig(t, "inference:\n  base_url: http://ignored:1\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "http://inference.internal:9000", cfg.Inference.BaseURL)
	assert.Equal(t, 2500, cfg.Inference.Timeout)
	assert.Equal(t, "/srv/data/features.json", cfg.Dataset.Path)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("TEST_DB_NAME", "features")
	path := writeConfig(t, `
dataset:
  source: postgres
database:
  postgres:
    host: db
    database: ${TEST_DB_NAME}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "features", cfg.Database.Postgres.Database)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "dbname=features")
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "sslmode=disable")
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown dataset source",
			body:    "dataset:\n  source: s3\n",
			wantErr: "dataset.source",
		},
		{
			name:    "relative inference url",
			body:    "inference:\n  base_url: model-service\n",
			wantErr: "inference.base_url",
		},
		{
			name:    "postgres without database",
			body:    "dataset:\n  source: postgres\n",
			wantErr: "database.postgres.database",
		},
		{
			name:    "watch on redis source",
			body:    "dataset:\n  source: redis\n  watch: true\n",
			wantErr: "dataset.watch",
		},
		{
			name:    "port out of range",
			body:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:3002", ServerConfig{Host: "0.0.0.0", Port: 3002}.Addr())
}
