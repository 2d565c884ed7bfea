package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barathraj048/Ai-counsler/internal/interview"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, TransportOffline, cfg.Oracle.Transport)
	assert.Equal(t, interview.DefaultPolicy(), cfg.Interview)
	assert.Equal(t, 20*time.Second, cfg.ClientConfig().Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COUNSELOR_CONFIG", "")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/c.db")
	t.Setenv("INTERVIEW_MIN_QUESTIONS", "4")
	t.Setenv("INTERVIEW_MAX_QUESTIONS", "6")
	t.Setenv("ORACLE_TRANSPORT", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("ORACLE_TIMEOUT", "7")
	t.Setenv("ORACLE_RATE_LIMIT", "2.5")
	t.Setenv("SERVE_METRICS", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/c.db", cfg.DBPath)
	assert.Equal(t, interview.Policy{MinQuestions: 4, MaxQuestions: 6}, cfg.Interview)
	assert.Equal(t, TransportOpenAI, cfg.Oracle.Transport)
	assert.Equal(t, "gsk-test", cfg.Oracle.APIKey)
	assert.Equal(t, 7*time.Second, cfg.Oracle.Timeout)
	assert.InDelta(t, 2.5, cfg.Oracle.RateLimit, 1e-9)
	assert.False(t, cfg.ServeMetrics)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counselor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":7000"
trend_window: 8
interview:
  min_questions: 10
  max_questions: 14
shortlist:
  min_fit: 55
  min_entries: 3
  max_entries: 5
  gate:
    critical_weight: 80
    tuition_ceiling_usd: 30000
    ranking_ceiling: 50
oracle:
  transport: grpc
  grpc_addr: "oracle:50051"
  timeout: 15s
  max_attempts: 3
`), 0o644))
	t.Setenv("COUNSELOR_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, 8, cfg.TrendWindow)
	assert.Equal(t, 14, cfg.Interview.MaxQuestions)
	assert.InDelta(t, 55, cfg.Shortlist.MinFit, 1e-9)
	assert.Equal(t, 5, cfg.Shortlist.MaxEntries)
	assert.InDelta(t, 30000, cfg.Shortlist.Gate.TuitionCeilingUSD, 1e-9)
	assert.Equal(t, "oracle:50051", cfg.Oracle.GRPCAddr)
	assert.Equal(t, 15*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Equal(t, "./data/counselor.db", cfg.DBPath, "unset keys keep defaults")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("COUNSELOR_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown transport", func(c *Config) { c.Oracle.Transport = "carrier-pigeon" }, "unknown ORACLE_TRANSPORT"},
		{"openai without key", func(c *Config) { c.Oracle.Transport = TransportOpenAI }, "API key is required"},
		{"inverted policy", func(c *Config) { c.Interview.MaxQuestions = 5 }, "interview"},
		{"min fit out of range", func(c *Config) { c.Shortlist.MinFit = 120 }, "min_fit"},
		{"no attempts", func(c *Config) { c.Oracle.MaxAttempts = 0 }, "ORACLE_MAX_ATTEMPTS"},
		{"tiny trend window", func(c *Config) { c.TrendWindow = 2 }, "TREND_WINDOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DUR", "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("X_DUR", time.Second))
	t.Setenv("X_DUR", "garbage")
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
}
