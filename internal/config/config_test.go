package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	require.Equal(t, ":8080", cfg.Server.Port)
	require.Equal(t, "data/hostpulse.db", cfg.Database.Path)
	require.Equal(t, 30*time.Second, cfg.Monitoring.DefaultInterval)
	require.Equal(t, 5*time.Second, cfg.Monitoring.ProbeTimeout)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "/metrics", cfg.Prometheus.MetricsPath)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: ":9090"
monitoring:
  default_interval: 60s
  probe_timeout: 3s
logging:
  level: debug
  format: json
prometheus:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Port)
	require.Equal(t, 60*time.Second, cfg.Monitoring.DefaultInterval)
	require.Equal(t, 3*time.Second, cfg.Monitoring.ProbeTimeout)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Prometheus.Enabled)

	// Unset sections still get defaults.
	require.Equal(t, "data/hostpulse.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsTinyInterval(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  default_interval: 100ms
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "default_interval")
}

func TestValidateRejectsPushoverWithoutCredentials(t *testing.T) {
	path := writeConfig(t, `
notifications:
  pushover:
    enabled: true
`)

	_, err := Load(path)
	require.ErrorContains(t, err, "api_token")
}
