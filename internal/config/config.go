package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Bot      BotConfig      `json:"bot" mapstructure:"bot"`
	Summary  SummaryConfig  `json:"summary" mapstructure:"summary"`
	OpenAI   OpenAIConfig   `json:"openai" mapstructure:"openai"`
	Renderer RendererConfig `json:"renderer" mapstructure:"renderer"`
	Admin    AdminConfig    `json:"admin" mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// BotConfig controls trigger recognition for inbound messages.
type BotConfig struct {
	TriggerPrefix      string   `json:"trigger_prefix" mapstructure:"trigger_prefix"`
	GroupChatPrefixes  []string `json:"group_chat_prefixes" mapstructure:"group_chat_prefixes"`
	GroupChatKeywords  []string `json:"group_chat_keywords" mapstructure:"group_chat_keywords"`
	SingleChatPrefixes []string `json:"single_chat_prefixes" mapstructure:"single_chat_prefixes"`
	GroupAtOff         bool     `json:"group_at_off" mapstructure:"group_at_off"`
}

// SummaryConfig controls admission and retention for summary jobs.
type SummaryConfig struct {
	CooldownSeconds int `json:"cooldown_seconds" mapstructure:"cooldown_seconds"`
	// RetentionHours <= 0 disables the purge sweep entirely.
	RetentionHours int    `json:"retention_hours" mapstructure:"retention_hours"`
	PurgeSchedule  string `json:"purge_schedule" mapstructure:"purge_schedule"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type OpenAIConfig struct {
	APIKey  string `json:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url,omitempty" mapstructure:"base_url"`
	Model   string `json:"model" mapstructure:"model"`
}

type RendererConfig struct {
	// URL of the text-to-image render service; empty disables image replies.
	URL            string `json:"url" mapstructure:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type AdminConfig struct {
	JWTSecret string   `json:"jwt_secret" mapstructure:"jwt_secret"`
	Names     []string `json:"names" mapstructure:"names"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".plugin-summary"))
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file: defaults plus env overrides are enough.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 3000)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "summary")
	viper.SetDefault("database.database", "summary")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("bot.trigger_prefix", "$")
	viper.SetDefault("bot.group_chat_prefixes", []string{"@bot"})
	viper.SetDefault("bot.group_chat_keywords", []string{})
	viper.SetDefault("bot.single_chat_prefixes", []string{""})
	viper.SetDefault("bot.group_at_off", false)

	viper.SetDefault("summary.cooldown_seconds", 3600)
	viper.SetDefault("summary.retention_hours", 720)
	viper.SetDefault("summary.purge_schedule", "0 0 * * *")
	viper.SetDefault("summary.timeout_seconds", 120)

	viper.SetDefault("openai.model", "gpt-3.5-turbo")

	viper.SetDefault("renderer.timeout_seconds", 30)
}

func loadEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUMMARY_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SUMMARY_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SUMMARY_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SUMMARY_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SUMMARY_DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("SUMMARY_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("SUMMARY_RENDERER_URL"); v != "" {
		cfg.Renderer.URL = v
	}
}
