package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.BindAddr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 200, cfg.Status.DispatchBatch)
	assert.Equal(t, 90, cfg.Status.MaxWindowDays)
	assert.Equal(t, 100, cfg.Probe.JobPullLimit)
	assert.Equal(t, "5m", cfg.Deploy.CorrelationDelay)
	assert.True(t, cfg.Deploy.FreezeEnabled)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  bindAddr: "127.0.0.1:9090"
logging:
  level: warn
deploy:
  correlationDelay: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.BindAddr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "10m", cfg.Deploy.CorrelationDelay)
	assert.Equal(t, 200, cfg.Status.DispatchBatch, "omitted fields keep defaults")
}

func TestLoadFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server":{"bindAddr":"127.0.0.1:7070"},"probe":{"jobPullLimit":50}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7070", cfg.Server.BindAddr)
	assert.Equal(t, 50, cfg.Probe.JobPullLimit)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "statuskeep", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=statuskeep sslmode=disable", c.DSN())
}
