package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 3000
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "flowdeck"
	defaultRedisURL   = "redis://localhost:6379/0"

	defaultAIModel          = "gpt-4o-mini"
	defaultAITimeoutSeconds = 30
	defaultWorkerCount      = 4
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	RedisURL       string         `yaml:"redis_url"`
	Database       DatabaseConfig `yaml:"database"`
	JWTSecret      string         `yaml:"jwt_secret"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	AI             AIConfig       `yaml:"ai"`
	Archive        ArchiveConfig  `yaml:"archive"`
	Workers        int            `yaml:"workers"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Supported AI provider variants.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// AIConfig selects the provider variant and its model at process start.
type AIConfig struct {
	Provider        string  `yaml:"provider"` // "openai" | "anthropic"
	APIKey          string  `yaml:"api_key"`
	Endpoint        string  `yaml:"endpoint"`
	Model           string  `yaml:"model"`
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
}

// Timeout is the hard wall-clock limit on a single provider call.
func (c AIConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = defaultAITimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// ArchiveConfig configures S3 archival of expired request logs.
// Archival is skipped entirely when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

func (c ArchiveConfig) Enabled() bool { return strings.TrimSpace(c.Bucket) != "" }

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env != "production" }

// Load reads and validates the YAML config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkerCount
	}
	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case "", ProviderOpenAI:
		cfg.AI.Provider = ProviderOpenAI
	case ProviderAnthropic:
		cfg.AI.Provider = ProviderAnthropic
	default:
		return nil, fmt.Errorf("invalid ai.provider %q in %q, expected openai or anthropic", cfg.AI.Provider, path)
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultAIModel
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		RedisURL: defaultRedisURL,
		Database: DatabaseConfig{
			Host:     defaultDBHost,
			Port:     defaultDBPort,
			User:     defaultDBUser,
			Password: defaultDBPassword,
			Name:     defaultDBName,
		},
		AI: AIConfig{
			Provider:       ProviderOpenAI,
			Model:          defaultAIModel,
			TimeoutSeconds: defaultAITimeoutSeconds,
		},
		Workers: defaultWorkerCount,
	}
}
