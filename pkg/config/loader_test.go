package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(environ ...string) *loader {
	l := NewService().(*loader)
	l.environ = func() []string { return environ }
	return l
}

func TestLoader_Defaults(t *testing.T) {
	t.Run("Should load documented defaults without any source", func(t *testing.T) {
		cfg, err := newTestLoader().Load(t.Context())
		require.NoError(t, err)

		assert.Equal(t, "redis", cfg.Redis.Host)
		assert.Equal(t, "6379", cfg.Redis.Port)
		assert.Equal(t, 0, cfg.Redis.DB)
		assert.Equal(t, "lead_jobs", cfg.Queue.Name)
		assert.Equal(t, 5*time.Second, cfg.Queue.PollTimeout)
		assert.Equal(t, 5, cfg.Worker.ConnectAttempts)
		assert.Equal(t, 5*time.Second, cfg.Worker.ConnectDelay)
		assert.Equal(t, 10*time.Second, cfg.Worker.ReconnectDelay)
		assert.Equal(t, 5*time.Second, cfg.Worker.ErrorDelay)
		assert.Equal(t, "/data/exports", cfg.Export.Dir)
		assert.Equal(t, "999", cfg.Export.ListID)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Runtime.LogLevel)
	})
}

func TestLoader_Environment(t *testing.T) {
	t.Run("Should override defaults from mapped environment variables", func(t *testing.T) {
		l := newTestLoader(
			"REDIS_HOST=cache.internal",
			"REDIS_PORT=6380",
			"REDIS_DB=2",
			"REDIS_PASSWORD=s3cret",
			"EXPORT_DIR=/tmp/exports",
			"LOG_LEVEL=debug",
			"WORKER_RECONNECT_DELAY=30s",
			"WORKER_ERROR_DELAY=2s",
			"API_PORT=9000",
		)
		cfg, err := l.Load(t.Context())
		require.NoError(t, err)

		assert.Equal(t, "cache.internal", cfg.Redis.Host)
		assert.Equal(t, "6380", cfg.Redis.Port)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, "s3cret", cfg.Redis.Password.Value())
		assert.Equal(t, "[REDACTED]", cfg.Redis.Password.String())
		assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
		assert.Equal(t, "debug", cfg.Runtime.LogLevel)
		assert.Equal(t, 30*time.Second, cfg.Worker.ReconnectDelay)
		assert.Equal(t, 2*time.Second, cfg.Worker.ErrorDelay)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, SourceEnv, l.GetSource("redis.host"))
		assert.Equal(t, SourceDefault, l.GetSource("queue.name"))
	})

	t.Run("Should ignore unmapped environment variables", func(t *testing.T) {
		cfg, err := newTestLoader("REDIS=oops", "PATH=/usr/bin").Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Redis.Host)
	})

	t.Run("Should reject invalid values", func(t *testing.T) {
		_, err := newTestLoader("LOG_LEVEL=loud").Load(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should reject sub-second poll timeouts", func(t *testing.T) {
		_, err := newTestLoader("QUEUE_POLL_TIMEOUT=200ms").Load(t.Context())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "poll_timeout")
	})
}

func TestLoader_Precedence(t *testing.T) {
	t.Run("Should apply yaml, then env, then CLI flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "leadops.yaml")
		content := "queue:\n  name: yaml_jobs\nexport:\n  dir: /yaml/exports\n  list_id: \"101\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		l := newTestLoader("EXPORT_DIR=/env/exports", "EXPORT_LIST_ID=202")
		cfg, err := l.Load(
			t.Context(),
			NewCLIProvider(map[string]any{"list-id": "303", "unknown-flag": "x"}),
			NewYAMLProvider(path),
			NewEnvProvider(),
		)
		require.NoError(t, err)

		assert.Equal(t, "yaml_jobs", cfg.Queue.Name)
		assert.Equal(t, "/env/exports", cfg.Export.Dir)
		assert.Equal(t, "303", cfg.Export.ListID)
		assert.Equal(t, SourceYAML, l.GetSource("queue.name"))
		assert.Equal(t, SourceCLI, l.GetSource("export.list_id"))
	})

	t.Run("Should treat a missing yaml file as empty", func(t *testing.T) {
		cfg, err := newTestLoader().Load(t.Context(), NewYAMLProvider(filepath.Join(t.TempDir(), "none.yaml")))
		require.NoError(t, err)
		assert.Equal(t, "lead_jobs", cfg.Queue.Name)
	})

	t.Run("Should reject queue names with whitespace", func(t *testing.T) {
		_, err := newTestLoader().Load(t.Context(), NewCLIProvider(map[string]any{"queue": "lead jobs"}))
		require.Error(t, err)
	})
}

func TestEnvMappings(t *testing.T) {
	t.Run("Should map environment variables to nested config paths", func(t *testing.T) {
		m := GenerateEnvToConfigMap()
		assert.Equal(t, "redis.host", m["REDIS_HOST"])
		assert.Equal(t, "export.dir", m["EXPORT_DIR"])
		assert.Equal(t, "server.ingest_rate.limit", m["SERVER_INGEST_RATE_LIMIT"])
		assert.Equal(t, "LOG_LEVEL", GetEnvVarForConfigPath("runtime.log_level"))
	})

	t.Run("Should flag secrets as sensitive", func(t *testing.T) {
		assert.True(t, IsSensitiveConfigPath("redis.password"))
		assert.False(t, IsSensitiveConfigPath("redis.host"))
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("Should ignore a missing env file", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("Should not override variables already set", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("LEADOPS_TEST_A=from_file\nLEADOPS_TEST_B=from_file\n"), 0o600))
		t.Setenv("LEADOPS_TEST_A", "from_env")
		t.Setenv("LEADOPS_TEST_B", "")
		require.NoError(t, os.Unsetenv("LEADOPS_TEST_B"))

		require.NoError(t, LoadDotEnv(path))

		assert.Equal(t, "from_env", os.Getenv("LEADOPS_TEST_A"))
		assert.Equal(t, "from_file", os.Getenv("LEADOPS_TEST_B"))
	})
}
