/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagridio/go-shell-cron/internal/scheduler"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func Test_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("paths default into home", func(t *testing.T) {
		t.Parallel()

		cfg := Default("/srv/crond")
		require.NoError(t, cfg.Resolve())
		assert.Equal(t, "/srv/crond/jobs", cfg.JobsFile)
		assert.Equal(t, "/srv/crond/logs", cfg.Log.File)
		assert.Equal(t, "/srv/crond/history", cfg.History.File.Path)
		assert.Equal(t, "/srv/crond/history.db", cfg.History.SQLite.Path)
		assert.NotEmpty(t, cfg.History.ETCD.ID)
		require.NoError(t, cfg.Validate())
	})

	t.Run("empty home resolves under the user home", func(t *testing.T) {
		t.Parallel()

		home, err := os.UserHomeDir()
		require.NoError(t, err)

		cfg := Default("")
		require.NoError(t, cfg.Resolve())
		assert.Equal(t, filepath.Join(home, DefaultHomeDir), cfg.Home)
	})

	t.Run("disabling the log file clears its path", func(t *testing.T) {
		t.Parallel()

		cfg := Default("/srv/crond")
		cfg.Log.ToFile = false
		cfg.Log.File = "/var/log/crond"
		require.NoError(t, cfg.Resolve())
		assert.Empty(t, cfg.Log.File)
	})
}

func Test_Decode(t *testing.T) {
	t.Parallel()

	t.Run("yaml overlays defaults", func(t *testing.T) {
		t.Parallel()

		cfg := Default("/srv/crond")
		require.NoError(t, cfg.Decode(strings.NewReader(`
jobs_file: /etc/crond/jobs
log:
  level: debug
history:
  backend: redis
  lowercase: true
  append_timeout: 3s
  redis:
    url: redis://localhost:6379/0
scheduler:
  sunday_first: true
  probe_limit: 512
metrics:
  addr: ":9090"
`)))

		assert.Equal(t, "/etc/crond/jobs", cfg.JobsFile)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.ToFile)
		assert.Equal(t, BackendRedis, cfg.History.Backend)
		assert.True(t, cfg.History.Lowercase)
		assert.Equal(t, 3*time.Second, cfg.History.AppendTimeout)
		assert.Equal(t, "redis://localhost:6379/0", cfg.History.Redis.URL)
		assert.Equal(t, "crond:history", cfg.History.Redis.Stream)
		assert.True(t, cfg.Scheduler.SundayFirst)
		assert.Equal(t, 512, cfg.Scheduler.ProbeLimit)
		assert.Equal(t, ":9090", cfg.Metrics.Addr)
		require.NoError(t, cfg.Validate())
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		t.Parallel()
		require.Error(t, Default("").Decode(strings.NewReader("histroy:\n  backend: file\n")))
	})

	t.Run("empty document is allowed", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, Default("").Decode(strings.NewReader("")))
	})
}

func Test_ApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("variables override settings", func(t *testing.T) {
		t.Parallel()

		cfg := Default("")
		require.NoError(t, cfg.ApplyEnv(lookup(map[string]string{
			"CROND_HOME":            "/tmp/crond",
			"CROND_HISTORY_BACKEND": "etcd",
			"CROND_ETCD_ENDPOINTS":  "http://a:2379,http://b:2379",
			"CROND_ETCD_ID":         "node-a",
			"CROND_ETCD_RETAIN":     "1000",
			"CROND_PROBE_LIMIT":     "64",
			"CROND_SUNDAY_FIRST":    "true",
			"CROND_LOG_TO_FILE":     "false",
			"CROND_LOCATION":        "Europe/Paris",
		})))
		require.NoError(t, cfg.Resolve())

		assert.Equal(t, "/tmp/crond", cfg.Home)
		assert.Equal(t, BackendETCD, cfg.History.Backend)
		assert.Equal(t, []string{"http://a:2379", "http://b:2379"}, cfg.History.ETCD.Endpoints)
		assert.Equal(t, "node-a", cfg.History.ETCD.ID)
		assert.Equal(t, uint64(1000), cfg.History.ETCD.Retain)
		assert.Equal(t, 64, cfg.Scheduler.ProbeLimit)
		assert.True(t, cfg.Scheduler.SundayFirst)
		assert.Empty(t, cfg.Log.File)
		require.NoError(t, cfg.Validate())

		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "Europe/Paris", loc.String())
		assert.Len(t, cfg.CalculatorOptions(), 3)
		assert.Equal(t, 64, scheduler.NewCalculator(cfg.CalculatorOptions()...).LoopLimit())
	})

	t.Run("malformed values are all reported", func(t *testing.T) {
		t.Parallel()

		err := Default("").ApplyEnv(lookup(map[string]string{
			"CROND_PROBE_LIMIT":            "many",
			"CROND_SUNDAY_FIRST":           "perhaps",
			"CROND_HISTORY_APPEND_TIMEOUT": "soon",
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CROND_PROBE_LIMIT")
		assert.Contains(t, err.Error(), "CROND_SUNDAY_FIRST")
		assert.Contains(t, err.Error(), "CROND_HISTORY_APPEND_TIMEOUT")
	})
}

func Test_Validate(t *testing.T) {
	t.Parallel()

	cfg := Default("/srv/crond")
	cfg.Log.Level = "loud"
	cfg.History.Backend = "tape"
	cfg.History.AppendTimeout = 0
	cfg.Scheduler.ProbeLimit = 0
	cfg.Scheduler.Location = "Mars/Olympus_Mons"

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{"log.level", "history.backend", "history.append_timeout", "scheduler.probe_limit", "scheduler.location"} {
		assert.Contains(t, err.Error(), field)
	}

	for backend, field := range map[Backend]string{
		BackendETCD:     "history.etcd.endpoints",
		BackendRedis:    "history.redis.url",
		BackendPostgres: "history.postgres.dsn",
	} {
		cfg := Default("/srv/crond")
		cfg.History.Backend = backend
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), field)
	}
}

func Test_Load(t *testing.T) {
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "crond.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("home: "+dir+"\nhistory:\n  backend: sqlite\n"), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("CROND_METRICS_ADDR=127.0.0.1:9191\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CROND_METRICS_ADDR") })

	cfg, err := Load(cfgPath, envPath, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Home)
	assert.Equal(t, BackendSQLite, cfg.History.Backend)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.SQLite.Path)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Addr)

	_, err = Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
}
