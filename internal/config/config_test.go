package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bus-scheduler/bus/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate aponta ENV_FILE para um arquivo inexistente e limpa as chaves usadas.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{
		"BATCH_FILE", "BUS_CAPACITY", "HIGH_SEND", "HIGH_RECEIVE", "NORMAL_SEND", "NORMAL_RECEIVE",
		"MAX_TRANSFER", "TRANSFER_RPS", "TRANSFER_BURST", "ACQUIRE_TIMEOUT", "SEED",
		"STATS_BACKEND", "STATS_REDIS_ADDR", "LOG_LEVEL", "LOG_FORMAT", "MAX_CONCURRENT_BATCHES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPlan(), cfg.Plan)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.StatsBackend)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 4, cfg.MaxConcurrentBatches)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacity: 5\nhighSend: 2\nnormalReceive: 9\nmaxTransfer: 3ms\n"), 0o600))

	t.Setenv("BATCH_FILE", path)
	t.Setenv("HIGH_SEND", "4")
	t.Setenv("ACQUIRE_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Plan.Capacity)
	assert.Equal(t, 4, cfg.Plan.HighSend)
	assert.Equal(t, 9, cfg.Plan.NormalReceive)
	assert.Equal(t, 3*time.Millisecond, cfg.Plan.MaxTransfer.Std())
	assert.Equal(t, 250*time.Millisecond, cfg.Plan.AcquireTimeout.Std())
	assert.Equal(t, int64(domain.DefaultSeed), cfg.Plan.Seed)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("NORMAL_SEND=7\nLOG_FORMAT=json\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv não sobrescreve variáveis já definidas, nem vazias
	require.NoError(t, os.Unsetenv("NORMAL_SEND"))
	require.NoError(t, os.Unsetenv("LOG_FORMAT"))
	t.Cleanup(func() {
		_ = os.Unsetenv("NORMAL_SEND")
		_ = os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Plan.NormalSend)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"capacity", map[string]string{"BUS_CAPACITY": "0"}, "capacity"},
		{"redis without addr", map[string]string{"STATS_BACKEND": "redis"}, "STATS_REDIS_ADDR"},
		{"backend", map[string]string{"STATS_BACKEND": "postgres"}, "STATS_BACKEND"},
		{"log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadPlanFile_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacity: 2\nlanes: 4\n"), 0o600))

	_, err := LoadPlanFile(path, domain.DefaultPlan())
	assert.Error(t, err)
}

func TestLoadPlanFile_EmptyFileKeepsBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	plan, err := LoadPlanFile(path, domain.DefaultPlan())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPlan(), plan)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "json", slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), "expected JSON output, got %q", out)
	assert.Contains(t, out, `"k":1`)
}
