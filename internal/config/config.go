package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/diffwarden/internal/logger"
)

// Provider names one of the two review backends.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

const defaultPrompt = `You are an experienced code reviewer. Review the following staged changes.
Each diff line is prefixed with its old and new line numbers; refer to new line
numbers when pointing at a problem. Focus on bugs, security issues, and
maintainability, and answer in Markdown.`

// ParseProvider accepts provider names case-insensitively ("Claude", "openai").
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderClaude:
		return ProviderClaude, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unsupported provider %q (expected %q or %q)", s, ProviderClaude, ProviderOpenAI)
	}
}

// DisplayName is the provider name used in user-facing messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderClaude:
		return "Claude"
	case ProviderOpenAI:
		return "OpenAI"
	default:
		return string(p)
	}
}

// ProviderConfig holds the endpoint, credential and model of one backend.
type ProviderConfig struct {
	APIURL string `mapstructure:"api_url"`
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ServerConfig struct {
	Port       string `mapstructure:"port"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// DBConfig configures the optional review history database. Driver is
// "postgres" (needs Host) or "sqlite3" (needs Path).
type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Enabled reports whether a database has been configured.
func (c DBConfig) Enabled() bool {
	switch c.Driver {
	case "sqlite3":
		return c.Path != ""
	case "postgres", "":
		return c.Host != ""
	default:
		return false
	}
}

type GitHubConfig struct {
	Token          string `mapstructure:"token"`
	AppID          int64  `mapstructure:"app_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
}

type TerminalConfig struct {
	Theme string `mapstructure:"theme"`
}

// Config holds the application's configuration values.
type Config struct {
	Provider       Provider       `mapstructure:"provider"`
	Prompt         string         `mapstructure:"prompt"`
	ModelMaxTokens int            `mapstructure:"model_max_tokens"`
	Claude         ProviderConfig `mapstructure:"claude"`
	OpenAI         ProviderConfig `mapstructure:"openai"`
	Logging        logger.Config  `mapstructure:"logging"`
	Server         ServerConfig   `mapstructure:"server"`
	Database       DBConfig       `mapstructure:"database"`
	GitHub         GitHubConfig   `mapstructure:"github"`
	Terminal       TerminalConfig `mapstructure:"terminal"`
}

// ProviderSettings returns the settings of the selected provider.
func (c *Config) ProviderSettings() ProviderConfig {
	if p, _ := ParseProvider(string(c.Provider)); p == ProviderOpenAI {
		return c.OpenAI
	}
	return c.Claude
}

// Model returns the model identifier of the selected provider.
func (c *Config) Model() string {
	return c.ProviderSettings().Model
}

// Validate checks the fields that every binary relies on. Provider
// credentials are checked later, when a streaming client is built.
func (c *Config) Validate() error {
	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.ModelMaxTokens <= 0 {
		return fmt.Errorf("model_max_tokens must be positive, got %d", c.ModelMaxTokens)
	}
	if c.Server.MaxWorkers < 0 {
		return fmt.Errorf("server.max_workers cannot be negative, got %d", c.Server.MaxWorkers)
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// ValidateForServer additionally requires the webhook settings.
func (c *Config) ValidateForServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.Port == "" {
		return errors.New("server.port must be set")
	}
	if c.GitHub.AppID != 0 && c.GitHub.WebhookSecret == "" {
		return errors.New("github.webhook_secret must be set when github.app_id is configured")
	}
	return nil
}

// LoadConfig reads configuration using the global viper instance, so that
// cobra flags bound with viper.BindPFlag take precedence.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper(), "")
}

// Load reads configuration from an optional config file and DW_* environment
// variables on top of defaults. If configFile is empty, config.yaml is looked
// up in the working directory and in $HOME/.diffwarden.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("DW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.diffwarden")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	provider, err := ParseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	cfg.Provider = provider

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderClaude))
	v.SetDefault("prompt", defaultPrompt)
	v.SetDefault("model_max_tokens", 4096)

	v.SetDefault("claude.api_url", "https://api.anthropic.com/v1/messages")
	v.SetDefault("claude.api_key", "")
	v.SetDefault("claude.model", "")
	v.SetDefault("openai.api_url", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.file", "diffwarden.log")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 2)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "diffwarden")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "diffwarden")
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	v.SetDefault("github.token", "")
	v.SetDefault("github.app_id", 0)
	v.SetDefault("github.private_key_path", "")
	v.SetDefault("github.webhook_secret", "")

	v.SetDefault("terminal.theme", "cyan")
}
