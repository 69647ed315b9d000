package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tradesearch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Model    ModelConfig    `yaml:"model"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds record store settings.
type DatabaseConfig struct {
	Path          string `yaml:"path"` // SQLite file, or ":memory:"
	BusyTimeoutMs int    `yaml:"busy_timeout_ms"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	SeedSchema    bool   `yaml:"seed_schema"`
}

// Cache drivers.
const (
	CacheDriverRedis  = "redis"
	CacheDriverBadger = "badger"
	CacheDriverNone   = "none"
)

// CacheConfig holds extraction cache and budget counter storage settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, badger, none (default: badger)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	BadgerDir        string   `yaml:"badger_dir"`
	InMemory         bool     `yaml:"in_memory"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderLangChain = "langchain"
)

// ModelConfig holds generative model settings.
type ModelConfig struct {
	Provider    string        `yaml:"provider"` // openai, langchain (default: openai)
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	TimeoutSec  int           `yaml:"timeout_sec"`
	Retry       RetryConfig   `yaml:"retry"`
	Breaker     BreakerConfig `yaml:"breaker"`
	Budget      BudgetConfig  `yaml:"budget"`
}

// RetryConfig holds extraction retry settings.
type RetryConfig struct {
	Attempts       int `yaml:"attempts"`
	InitialDelayMs int `yaml:"initial_delay_ms"`
	MaxDelayMs     int `yaml:"max_delay_ms"`
}

// BreakerConfig holds circuit breaker settings for the model provider.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"` // consecutive failures before opening
	OpenTimeoutSec   int `yaml:"open_timeout_sec"`
	HalfOpenRequests int `yaml:"half_open_requests"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// RankingConfig holds ranking engine settings.
type RankingConfig struct {
	Enabled    *bool  `yaml:"enabled"` // default true
	ConfigPath string `yaml:"config_path"`
	Watch      bool   `yaml:"watch"`
}

// IsEnabled reports whether ranking is on.
func (r RankingConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// SearchConfig holds orchestrator settings.
type SearchConfig struct {
	MaxResults     int `yaml:"max_results"`
	HistoryWorkers int `yaml:"history_workers"`
	// HistoryQueue is how many writes may wait for a busy pool; negative disables waiting.
	HistoryQueue   int `yaml:"history_queue"`
	HistoryWaitMs  int `yaml:"history_wait_ms"`
	MaxSuggestions int `yaml:"max_suggestion_candidates"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.BusyTimeoutMs <= 0 {
		c.Database.BusyTimeoutMs = 5000
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 4
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheDriverBadger
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Model.Provider == "" {
		c.Model.Provider = ProviderOpenAI
	}
	if c.Model.MaxTokens <= 0 {
		c.Model.MaxTokens = 500
	}
	if c.Model.TimeoutSec <= 0 {
		c.Model.TimeoutSec = 30
	}
	if c.Model.Retry.Attempts <= 0 {
		c.Model.Retry.Attempts = 3
	}
	if c.Model.Retry.InitialDelayMs <= 0 {
		c.Model.Retry.InitialDelayMs = 2000
	}
	if c.Model.Retry.MaxDelayMs <= 0 {
		c.Model.Retry.MaxDelayMs = 10000
	}
	if c.Model.Breaker.FailureThreshold <= 0 {
		c.Model.Breaker.FailureThreshold = 5
	}
	if c.Model.Breaker.OpenTimeoutSec <= 0 {
		c.Model.Breaker.OpenTimeoutSec = 30
	}
	if c.Model.Breaker.HalfOpenRequests <= 0 {
		c.Model.Breaker.HalfOpenRequests = 1
	}

	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 50
	}
	if c.Search.HistoryWorkers <= 0 {
		c.Search.HistoryWorkers = 4
	}
	if c.Search.HistoryQueue == 0 {
		c.Search.HistoryQueue = 256
	}
	if c.Search.HistoryWaitMs <= 0 {
		c.Search.HistoryWaitMs = 100
	}
	if c.Search.MaxSuggestions <= 0 {
		c.Search.MaxSuggestions = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Cache.Driver {
	case CacheDriverRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	case CacheDriverBadger:
		if c.Cache.BadgerDir == "" && !c.Cache.InMemory {
			return fmt.Errorf("cache.badger_dir is required unless cache.in_memory is set")
		}
	case CacheDriverNone:
	default:
		return fmt.Errorf("cache.driver must be one of redis, badger, none, got %q", c.Cache.Driver)
	}

	switch c.Model.Provider {
	case ProviderOpenAI, ProviderLangChain:
	default:
		return fmt.Errorf("model.provider must be \"openai\" or \"langchain\", got %q", c.Model.Provider)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0 and 2, got %v", c.Model.Temperature)
	}
	if c.Model.Retry.MaxDelayMs < c.Model.Retry.InitialDelayMs {
		return fmt.Errorf("model.retry.max_delay_ms (%d) must not be below initial_delay_ms (%d)",
			c.Model.Retry.MaxDelayMs, c.Model.Retry.InitialDelayMs)
	}
	switch c.Model.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("model.budget.action must be \"warn\" or \"reject\", got %q", c.Model.Budget.Action)
	}

	if c.Search.MaxResults > 500 {
		return fmt.Errorf("search.max_results must be at most 500, got %d", c.Search.MaxResults)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
