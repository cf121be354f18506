package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

const sampleConfig = `
server:
  host: 0.0.0.0
  port: 8080
  mode: debug
database:
  host: localhost
  port: 3306
  username: root
  database: dealserver
redis:
  host: localhost
  port: 6379
jwt:
  secret: test-secret
  expire_hours: 24
llm:
  model: claude-sonnet-4-20250514
  mock_mode: true
  max_tokens: 4096
queue:
  job_queue: deal_jobs
  max_workers: 4
upload:
  max_size: 10485760
  min_text_length: 50
  allowed_extensions: [".txt", ".md", ".pdf", ".docx"]
rate_limit:
  requests: 30
  window_seconds: 60
cron:
  stale_deal_days: 7
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "dealserver", cfg.Database.Database)
	assert.Equal(t, "deal_jobs", cfg.Queue.JobQueue)
	assert.Equal(t, 4, cfg.Queue.MaxWorkers)
	assert.True(t, cfg.LLM.MockMode)
	assert.Equal(t, 50, cfg.Upload.MinTextLength)
	assert.Equal(t, 7, cfg.Cron.StaleDealDays)
}

func TestLoad_PrefersLocalConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", sampleConfig)
	writeConfigFile(t, dir, "config.local.yaml", `
server:
  port: 9090
queue:
  job_queue: local_jobs
`)

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "local_jobs", cfg.Queue.JobQueue)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
