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
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Report.Workers)
	assert.Equal(t, "America/Chicago", cfg.Report.DefaultTimezone)
	assert.Equal(t, time.Duration(0), cfg.Report.Horizon)
	assert.Equal(t, "reports", cfg.Export.Dir)
	assert.Equal(t, "csv", cfg.Export.Format)
	assert.Equal(t, 2, cfg.Export.Precision)
	assert.Equal(t, 10*time.Minute, cfg.Export.CacheTTL)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, 16, cfg.Queue.Size)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
report:
  workers: 12
  default_timezone: Asia/Kolkata
  horizon_minutes: 90
export:
  format: parquet
  precision: 4
queue:
  backend: redis
  redis_addr: localhost:6379
push:
  vapid_public_key: pub
  vapid_private_key: priv
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Report.Workers)
	assert.Equal(t, "Asia/Kolkata", cfg.Report.DefaultTimezone)
	assert.Equal(t, 90*time.Minute, cfg.Report.Horizon)
	assert.Equal(t, "parquet", cfg.Export.Format)
	assert.Equal(t, 4, cfg.Export.Precision)
	assert.Equal(t, "storepulse:report_jobs", cfg.Queue.RedisKey)
	assert.True(t, cfg.Push.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "unknown queue backend", body: "queue:\n  backend: kafka\n"},
		{name: "redis without address", body: "queue:\n  backend: redis\n"},
		{name: "unknown export format", body: "export:\n  format: pdf\n"},
		{name: "bad fallback timezone", body: "report:\n  default_timezone: Mars/Olympus\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
