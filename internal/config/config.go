// Package config loads the decision core configuration: built-in defaults,
// then an optional YAML file named by COUNSELOR_CONFIG, then environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/barathraj048/Ai-counsler/internal/escalation"
	"github.com/barathraj048/Ai-counsler/internal/interview"
	"github.com/barathraj048/Ai-counsler/internal/oracle"
	"github.com/barathraj048/Ai-counsler/internal/shortlist"
)

// Transport names accepted by ORACLE_TRANSPORT.
const (
	TransportGRPC    = "grpc"
	TransportOpenAI  = "openai"
	TransportGenAI   = "genai"
	TransportOffline = "offline"
)

// #region types

// Config holds all application configuration.
type Config struct {
	ListenAddr   string               `yaml:"listen_addr"`
	DBPath       string               `yaml:"db_path"`
	LogLevel     string               `yaml:"log_level"`
	KeywordsPath string               `yaml:"keywords_path"` // empty = built-in phrase list
	TrendWindow  int                  `yaml:"trend_window"`
	HookTimeout  time.Duration        `yaml:"hook_timeout"`
	ServeMetrics bool                 `yaml:"serve_metrics"`
	Interview    interview.Policy     `yaml:"interview"`
	Shortlist    shortlist.RankConfig `yaml:"shortlist"`
	Oracle       OracleConfig         `yaml:"oracle"`
}

// OracleConfig selects and tunes the judgment transport. API keys are read
// from the environment only.
type OracleConfig struct {
	Transport     string        `yaml:"transport"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RateLimit     float64       `yaml:"rate_limit"`
	Burst         int           `yaml:"burst"`
	GRPCAddr      string        `yaml:"grpc_addr"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	GenAIModel    string        `yaml:"genai_model"`
	Temperature   float64       `yaml:"temperature"`
	APIKey        string        `yaml:"-"`
}

// #endregion types

// #region load

// Default returns the configuration used when nothing is set.
func Default() *Config {
	client := oracle.DefaultClientConfig()
	return &Config{
		ListenAddr:   ":8080",
		DBPath:       "./data/counselor.db",
		LogLevel:     "info",
		TrendWindow:  escalation.DefaultWindow,
		HookTimeout:  5 * time.Second,
		ServeMetrics: true,
		Interview:    interview.DefaultPolicy(),
		Shortlist:    shortlist.DefaultRankConfig(),
		Oracle: OracleConfig{
			Transport:     TransportOffline,
			Timeout:       client.Timeout,
			MaxAttempts:   client.MaxAttempts,
			RateLimit:     client.RateLimit,
			Burst:         client.Burst,
			GRPCAddr:      "localhost:50051",
			OpenAIBaseURL: oracle.DefaultOpenAIBaseURL,
			OpenAIModel:   oracle.DefaultOpenAIModel,
			GenAIModel:    oracle.DefaultGenAIModel,
			Temperature:   0.3,
		},
	}
}

// Load reads configuration from COUNSELOR_CONFIG (if set) and the environment.
func Load() (*Config, error) {
	cfg := Default()
	if path := getEnv("COUNSELOR_CONFIG", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	if port := getEnv("PORT", ""); port != "" {
		c.ListenAddr = ":" + port
	}
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.KeywordsPath = getEnv("KEYWORDS_PATH", c.KeywordsPath)
	c.TrendWindow = getEnvInt("TREND_WINDOW", c.TrendWindow)
	c.HookTimeout = getEnvDuration("HOOK_TIMEOUT", c.HookTimeout)
	c.ServeMetrics = getEnvBool("SERVE_METRICS", c.ServeMetrics)

	c.Interview.MinQuestions = getEnvInt("INTERVIEW_MIN_QUESTIONS", c.Interview.MinQuestions)
	c.Interview.MaxQuestions = getEnvInt("INTERVIEW_MAX_QUESTIONS", c.Interview.MaxQuestions)

	o := &c.Oracle
	o.Transport = strings.ToLower(getEnv("ORACLE_TRANSPORT", o.Transport))
	o.Timeout = getEnvDuration("ORACLE_TIMEOUT", o.Timeout)
	o.MaxAttempts = getEnvInt("ORACLE_MAX_ATTEMPTS", o.MaxAttempts)
	o.RateLimit = getEnvFloat("ORACLE_RATE_LIMIT", o.RateLimit)
	o.Burst = getEnvInt("ORACLE_BURST", o.Burst)
	o.GRPCAddr = getEnv("ORACLE_GRPC_ADDR", o.GRPCAddr)
	o.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", o.OpenAIBaseURL)
	o.OpenAIModel = getEnv("OPENAI_MODEL", o.OpenAIModel)
	o.GenAIModel = getEnv("GENAI_MODEL", o.GenAIModel)
	o.Temperature = getEnvFloat("ORACLE_TEMPERATURE", o.Temperature)

	switch o.Transport {
	case TransportOpenAI:
		o.APIKey = getEnv("OPENAI_API_KEY", getEnv("GROQ_API_KEY", o.APIKey))
	case TransportGenAI:
		o.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", o.APIKey))
	}
}

// #endregion load

// #region validate

// Validate checks that all required configuration fields are set and that
// the policy bounds are consistent.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("LISTEN_ADDR cannot be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	if c.TrendWindow < 3 {
		errs = append(errs, fmt.Errorf("TREND_WINDOW must be >= 3, got %d", c.TrendWindow))
	}
	if c.HookTimeout <= 0 {
		errs = append(errs, errors.New("HOOK_TIMEOUT must be > 0"))
	}
	if err := c.Interview.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("interview: %w", err))
	}

	s := c.Shortlist
	if s.MinEntries < 1 || s.MaxEntries < s.MinEntries {
		errs = append(errs, fmt.Errorf("shortlist: entries must satisfy 1 <= min (%d) <= max (%d)", s.MinEntries, s.MaxEntries))
	}
	if s.MinFit < 0 || s.MinFit > 100 {
		errs = append(errs, fmt.Errorf("shortlist: min_fit must be within [0,100], got %g", s.MinFit))
	}
	if s.Gate.CriticalWeight < 0 || s.Gate.CriticalWeight > 100 {
		errs = append(errs, fmt.Errorf("shortlist: critical_weight must be within [0,100], got %g", s.Gate.CriticalWeight))
	}

	o := c.Oracle
	switch o.Transport {
	case TransportOffline:
	case TransportGRPC:
		if o.GRPCAddr == "" {
			errs = append(errs, errors.New("ORACLE_GRPC_ADDR cannot be empty for grpc transport"))
		}
	case TransportOpenAI, TransportGenAI:
		if o.APIKey == "" {
			errs = append(errs, fmt.Errorf("an API key is required for %s transport", o.Transport))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ORACLE_TRANSPORT %q", o.Transport))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("ORACLE_TIMEOUT must be > 0"))
	}
	if o.MaxAttempts < 1 {
		errs = append(errs, errors.New("ORACLE_MAX_ATTEMPTS must be >= 1"))
	}
	if o.RateLimit < 0 {
		errs = append(errs, errors.New("ORACLE_RATE_LIMIT must be >= 0"))
	}
	return errors.Join(errs...)
}

// ClientConfig returns the oracle client budget.
func (c *Config) ClientConfig() oracle.ClientConfig {
	return oracle.ClientConfig{
		Timeout:     c.Oracle.Timeout,
		MaxAttempts: c.Oracle.MaxAttempts,
		RateLimit:   c.Oracle.RateLimit,
		Burst:       c.Oracle.Burst,
	}
}

// #endregion validate

// #region env

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvDuration accepts Go durations ("20s") or bare seconds ("20").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// #endregion env
