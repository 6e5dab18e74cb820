package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	HomeAssistant HomeAssistantConfig `mapstructure:"home_assistant"`
	AI            AIConfig            `mapstructure:"ai"`
	Conversation  ConversationConfig  `mapstructure:"conversation"`
	Cache         CacheConfig         `mapstructure:"cache"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	RetentionDays  int    `mapstructure:"retention_days"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HomeAssistantConfig struct {
	URL             string `mapstructure:"url"`
	Token           string `mapstructure:"token"`
	EventsEnabled   bool   `mapstructure:"events_enabled"`
	RegistryRefresh string `mapstructure:"registry_refresh"`
}

// AIConfig describes the OpenAI-compatible completion endpoint and the
// sampling parameters for the two request kinds. Control requests run
// cooler than chat so the model sticks to the JSON contract.
type AIConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	APIKey             string  `mapstructure:"api_key"`
	Model              string  `mapstructure:"model"`
	ChatTemperature    float64 `mapstructure:"chat_temperature"`
	ChatMaxTokens      int     `mapstructure:"chat_max_tokens"`
	ControlTemperature float64 `mapstructure:"control_temperature"`
	ControlMaxTokens   int     `mapstructure:"control_max_tokens"`
	Timeout            string  `mapstructure:"timeout"`
	RetryCount         int     `mapstructure:"retry_count"`
	RetryDelay         string  `mapstructure:"retry_delay"`
}

type ConversationConfig struct {
	Prompt              string           `mapstructure:"prompt"`
	ControlPrompt       string           `mapstructure:"control_prompt"`
	EnableDeviceControl bool             `mapstructure:"enable_device_control"`
	SelectedEntities    []string         `mapstructure:"selected_entities"`
	SelectedAreas       []string         `mapstructure:"selected_areas"`
	EnableSensors       bool             `mapstructure:"enable_sensors"`
	HistoryLimit        int              `mapstructure:"history_limit"`
	OptimizePrompts     bool             `mapstructure:"optimize_prompts"`
	CompressionLevel    string           `mapstructure:"compression_level"`
	CustomColors        map[string][]int `mapstructure:"custom_colors"`
}

type CacheConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	MaxAgeSeconds   int    `mapstructure:"max_age_seconds"`
	MaxEntries      int    `mapstructure:"max_entries"`
	CleanupInterval string `mapstructure:"cleanup_interval"`
}

// Load reads configuration from configs/config.yaml with FREELLM_
// prefixed environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/freellm")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FREELLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file is fine, defaults plus env carry a minimal setup.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3100)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "production")

	v.SetDefault("database.path", "./data/freellm.db")
	v.SetDefault("database.migrations_path", "./migrations")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.retention_days", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("home_assistant.events_enabled", true)
	v.SetDefault("home_assistant.registry_refresh", "5m")

	v.SetDefault("ai.base_url", "https://api.llm7.io/v1")
	v.SetDefault("ai.model", "gpt-4o-mini-2024-07-18")
	v.SetDefault("ai.chat_temperature", 0.7)
	v.SetDefault("ai.chat_max_tokens", 1000)
	v.SetDefault("ai.control_temperature", 0.3)
	v.SetDefault("ai.control_max_tokens", 500)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.retry_count", 2)
	v.SetDefault("ai.retry_delay", "1s")

	v.SetDefault("conversation.enable_device_control", true)
	v.SetDefault("conversation.enable_sensors", true)
	v.SetDefault("conversation.history_limit", 20)
	v.SetDefault("conversation.optimize_prompts", true)
	v.SetDefault("conversation.compression_level", "auto")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_age_seconds", 300)
	v.SetDefault("cache.max_entries", 200)
	v.SetDefault("cache.cleanup_interval", "1m")
}

// Duration parses a duration-shaped config value, falling back when the
// string is empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
