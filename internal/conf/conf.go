package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glowreach/reply-engine/internal/biz/usecase"
	"github.com/glowreach/reply-engine/internal/data"
)

// Config represents application configuration.
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Webhook verification configuration
	Webhook WebhookConfig

	// Platform graph API configuration
	Platform PlatformConfig

	// LLM configuration (optional)
	LLM LLMConfig

	// Memory retention configuration
	Memory MemoryConfig

	// Governor cadence configuration
	Governor usecase.GovernorConfig

	// Database path
	DBPath string

	// Replies configuration (loaded from YAML)
	Replies *RepliesConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port string
}

// WebhookConfig contains webhook verification secrets.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
}

// PlatformConfig contains platform graph API configuration.
type PlatformConfig struct {
	BaseURL string
}

// LLMConfig contains language model configuration.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// MemoryConfig contains conversation memory configuration.
type MemoryConfig struct {
	RetentionDays int
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".reply-engine", "engine.db")
	}

	retentionDays := 3
	if val := os.Getenv("MEMORY_RETENTION_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			retentionDays = parsed
		}
	}

	governor := usecase.DefaultGovernorConfig
	if val := os.Getenv("GOVERNOR_DAILY_CAP"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			governor.DailyCap = parsed
		}
	}
	if val := os.Getenv("GOVERNOR_SAMPLING_RATE"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil && parsed > 0 && parsed <= 1 {
			governor.SamplingRate = parsed
		}
	}
	if val := os.Getenv("GOVERNOR_MIN_DELAY_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			governor.MinDelay = time.Duration(parsed) * time.Second
		}
	}
	if val := os.Getenv("GOVERNOR_MAX_DELAY_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			governor.MaxDelay = time.Duration(parsed) * time.Second
		}
	}

	repliesConfig, _ := LoadRepliesConfig(os.Getenv("REPLIES_CONFIG_PATH"))

	return &Config{
		Server: ServerConfig{
			Port: port,
		},
		Webhook: WebhookConfig{
			VerifyToken: os.Getenv("WEBHOOK_VERIFY_TOKEN"),
			AppSecret:   os.Getenv("WEBHOOK_APP_SECRET"),
		},
		Platform: PlatformConfig{
			BaseURL: os.Getenv("PLATFORM_BASE_URL"),
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
			Model:   os.Getenv("LLM_MODEL"),
		},
		Memory: MemoryConfig{
			RetentionDays: retentionDays,
		},
		Governor: governor,
		DBPath:   dbPath,
		Replies:  repliesConfig,
		Debug:    os.Getenv("DEBUG") == "true",
	}
}

// ToLLMConfig converts to the data-layer LLM configuration.
func (c *Config) ToLLMConfig() data.LLMConfig {
	return data.LLMConfig{
		APIKey:  c.LLM.APIKey,
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
	}
}

// Retention returns the memory retention window as a duration.
func (c *MemoryConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// ToGeneratorConfig converts to the generator configuration.
func (c *Config) ToGeneratorConfig() usecase.GeneratorConfig {
	cfg := usecase.DefaultGeneratorConfig
	if c.Replies != nil && c.Replies.SystemPrompt != "" {
		cfg.SystemPrompt = c.Replies.SystemPrompt
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Webhook.VerifyToken == "" || c.Webhook.AppSecret == "" {
		return &ConfigError{Field: "WEBHOOK_VERIFY_TOKEN/WEBHOOK_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
