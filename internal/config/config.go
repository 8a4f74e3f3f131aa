// Package config provides configuration management for the stock monitoring application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Monitor       MonitorConfig      `mapstructure:"monitor"`
	Quotes        QuotesConfig       `mapstructure:"quotes"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Analysis      AnalysisConfig     `mapstructure:"analysis"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// MonitorConfig holds scheduling configuration for the monitoring loop.
type MonitorConfig struct {
	// MarketHoursSchedule runs checks at fixed times during US market hours
	// instead of a flat interval.
	MarketHoursSchedule bool `mapstructure:"market_hours_schedule"`
	// CheckIntervalMinutes is the interval between checks when the
	// market-hours schedule is disabled.
	CheckIntervalMinutes int `mapstructure:"check_interval_minutes"`
	// FetchConcurrency bounds concurrent quote fetches within one cycle.
	FetchConcurrency int `mapstructure:"fetch_concurrency"`
}

// QuotesConfig holds quote provider configuration.
type QuotesConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CacheTTLSecs   int    `mapstructure:"cache_ttl_seconds"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Terminal bool        `mapstructure:"terminal"`
	Email    EmailConfig `mapstructure:"email"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// AnalysisConfig holds configuration for the alert rationale collaborator.
type AnalysisConfig struct {
	Model string `mapstructure:"model"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stockwatch"
	}
	return filepath.Join(home, ".config", "stockwatch")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue on defaults
			if terr := createTemplateConfig(configDir); terr != nil {
				return terr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("monitor.market_hours_schedule", true)
	v.SetDefault("monitor.check_interval_minutes", 60)
	v.SetDefault("monitor.fetch_concurrency", 4)
	v.SetDefault("quotes.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("quotes.timeout_seconds", 10)
	v.SetDefault("quotes.cache_ttl_seconds", 300)
	v.SetDefault("storage.db_path", filepath.Join(configDir, "stockwatch.db"))
	v.SetDefault("notifications.terminal", true)
	v.SetDefault("notifications.email.enabled", false)
	v.SetDefault("notifications.email.smtp_port", 587)
	v.SetDefault("analysis.model", "gpt-4o-mini")
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("STOCKWATCH_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("STOCKWATCH_SMTP_PASSWORD"); v != "" {
		cfg.Notifications.Email.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Monitor.CheckIntervalMinutes < 1 {
		return fmt.Errorf("check_interval_minutes must be at least 1")
	}
	if c.Monitor.FetchConcurrency < 1 || c.Monitor.FetchConcurrency > 32 {
		return fmt.Errorf("fetch_concurrency must be between 1 and 32")
	}
	if c.Quotes.TimeoutSeconds < 1 {
		return fmt.Errorf("quotes timeout_seconds must be at least 1")
	}
	if c.Quotes.CacheTTLSecs < 0 {
		return fmt.Errorf("cache_ttl_seconds must be non-negative")
	}
	if c.Notifications.Email.Enabled {
		if c.Notifications.Email.SMTPHost == "" {
			return fmt.Errorf("email notifications enabled but smtp_host is empty")
		}
		if c.Notifications.Email.From == "" || c.Notifications.Email.To == "" {
			return fmt.Errorf("email notifications enabled but from/to address is empty")
		}
	}
	return nil
}
