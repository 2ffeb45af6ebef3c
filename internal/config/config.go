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

// Config holds the absola API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	TermCache  TermCacheConfig  `yaml:"term_cache"`
	Auth       AuthConfig       `yaml:"auth"`
	Limits     LimitsConfig     `yaml:"limits"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds metadata store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis (default: sqlite)
	Path             string   `yaml:"path"`   // sqlite file
	Addrs            []string `yaml:"addrs"`  // redis
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// GatewayConfig holds AI service settings.
type GatewayConfig struct {
	BaseURL          string `yaml:"base_url"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	HealthTimeoutSec int    `yaml:"health_timeout_sec"`
}

// SummarizerConfig selects the summary backend.
type SummarizerConfig struct {
	Provider      string `yaml:"provider"` // gateway, openai (default: gateway)
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	MaxInputChars int    `yaml:"max_input_chars"`
}

// TermCacheConfig holds term lookup cache settings. Requires a redis address.
type TermCacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Addrs   []string `yaml:"addrs"` // defaults to database.addrs
	TTLSec  int      `yaml:"ttl_sec"`
}

// LimitsConfig holds request limits.
type LimitsConfig struct {
	MaxUploadBytes     int64 `yaml:"max_upload_bytes"`
	QueriesPerMinute   int   `yaml:"queries_per_minute"`
	QueryBurst         int   `yaml:"query_burst"`
	UploadSweepMinutes int   `yaml:"upload_sweep_minutes"`
}

// StorageConfig holds filesystem layout settings.
type StorageConfig struct {
	DocumentsDir string `yaml:"documents_dir"`
	UploadsDir   string `yaml:"uploads_dir"`
	IndexRoot    string `yaml:"index_root"` // empty disables local index removal
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, applying defaults and validating.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// query and summary wait on the AI service
		c.HTTP.WriteTimeoutSec = 150
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 30
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/absola.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = 120
	}
	if c.Gateway.HealthTimeoutSec <= 0 {
		c.Gateway.HealthTimeoutSec = 5
	}
	if c.Summarizer.Provider == "" {
		c.Summarizer.Provider = "gateway"
	}
	if c.TermCache.TTLSec <= 0 {
		c.TermCache.TTLSec = 24 * 60 * 60
	}
	if len(c.TermCache.Addrs) == 0 {
		c.TermCache.Addrs = c.Database.Addrs
	}
	if c.Limits.MaxUploadBytes <= 0 {
		c.Limits.MaxUploadBytes = 5 << 20
	}
	if c.Limits.QueriesPerMinute <= 0 {
		c.Limits.QueriesPerMinute = 30
	}
	if c.Limits.QueryBurst <= 0 {
		c.Limits.QueryBurst = c.Limits.QueriesPerMinute
	}
	if c.Limits.UploadSweepMinutes <= 0 {
		c.Limits.UploadSweepMinutes = 60
	}
	if c.Storage.DocumentsDir == "" {
		c.Storage.DocumentsDir = "data/documents"
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = "data/uploads"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "sqlite":
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver redis")
		}
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	switch c.Summarizer.Provider {
	case "gateway":
	case "openai":
		if c.Summarizer.APIKey == "" || c.Summarizer.Model == "" {
			return fmt.Errorf("summarizer.api_key and summarizer.model are required for provider openai")
		}
	default:
		return fmt.Errorf("summarizer.provider must be \"gateway\" or \"openai\", got %q", c.Summarizer.Provider)
	}
	if c.TermCache.Enabled && len(c.TermCache.Addrs) == 0 {
		return fmt.Errorf("term_cache.addrs is required when term_cache is enabled")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
