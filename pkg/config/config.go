package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names for the Instagram credentials. They match the
// names used by the bot's .env file.
const (
	EnvInstagramUser     = "IG_user"
	EnvInstagramPassword = "IG_password"
)

// Config holds all configuration options for the unfollow bot
type Config struct {
	// Instagram account and client settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Discord bot settings
	Discord DiscordConfig `yaml:"discord" json:"discord"`

	// Global command cooldown
	Cooldown CooldownConfig `yaml:"cooldown" json:"cooldown"`

	// Unfollow pacing and retry policy
	Unfollow UnfollowConfig `yaml:"unfollow" json:"unfollow"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Background worker pool
	Workers WorkersConfig `yaml:"workers" json:"workers"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	Username  string        `yaml:"username" json:"username"`
	Password  string        `yaml:"password" json:"-"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	AppID     string        `yaml:"app_id" json:"app_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	PageDelay time.Duration `yaml:"page_delay" json:"page_delay"`
}

// HasCredentials reports whether both the username and password are set
func (c InstagramConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// DiscordConfig holds Discord bot configuration
type DiscordConfig struct {
	Token       string `yaml:"token" json:"-"`
	GuildID     string `yaml:"guild_id" json:"guild_id"`
	CommandName string `yaml:"command_name" json:"command_name"`
}

// CooldownConfig controls the global command cooldown
type CooldownConfig struct {
	Duration  time.Duration `yaml:"duration" json:"duration"`
	OnFailure bool          `yaml:"on_failure" json:"on_failure"`
}

// UnfollowConfig holds the workflow pacing configuration
type UnfollowConfig struct {
	FetchAttempts   int           `yaml:"fetch_attempts" json:"fetch_attempts"`
	FetchRetryDelay time.Duration `yaml:"fetch_retry_delay" json:"fetch_retry_delay"`
	SettleDelay     time.Duration `yaml:"settle_delay" json:"settle_delay"`
	MinDelay        time.Duration `yaml:"min_delay" json:"min_delay"`
	MaxDelay        time.Duration `yaml:"max_delay" json:"max_delay"`
	FailureDelay    time.Duration `yaml:"failure_delay" json:"failure_delay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// WorkersConfig holds worker pool configuration
type WorkersConfig struct {
	PoolSize  int `yaml:"pool_size" json:"pool_size"`
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// MetricsConfig holds the Prometheus listener configuration
type MetricsConfig struct {
	Address string `yaml:"address" json:"address"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			AppID:     "936619743392459",
			BaseURL:   "https://www.instagram.com",
			Timeout:   30 * time.Second,
			PageSize:  50,
			PageDelay: 1 * time.Second,
		},
		Discord: DiscordConfig{
			CommandName: "unfollow",
		},
		Cooldown: CooldownConfig{
			Duration:  24 * time.Hour,
			OnFailure: false,
		},
		Unfollow: UnfollowConfig{
			FetchAttempts:   3,
			FetchRetryDelay: 2 * time.Second,
			SettleDelay:     3 * time.Second,
			MinDelay:        4 * time.Second,
			MaxDelay:        8 * time.Second,
			FailureDelay:    10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Workers: WorkersConfig{
			PoolSize:  1,
			QueueSize: 1,
		},
		Metrics: MetricsConfig{
			Address: "",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Instagram credentials
	if username := os.Getenv(EnvInstagramUser); username != "" {
		c.Instagram.Username = username
	}
	if password := os.Getenv(EnvInstagramPassword); password != "" {
		c.Instagram.Password = password
	}
	if userAgent := os.Getenv("IGUNFOLLOW_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	// Discord
	if token := os.Getenv("IGUNFOLLOW_DISCORD_TOKEN"); token != "" {
		c.Discord.Token = token
	}
	if guildID := os.Getenv("IGUNFOLLOW_DISCORD_GUILD_ID"); guildID != "" {
		c.Discord.GuildID = guildID
	}

	// Cooldown
	if raw := os.Getenv("IGUNFOLLOW_COOLDOWN"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid IGUNFOLLOW_COOLDOWN %q: %w", raw, err)
		}
		c.Cooldown.Duration = d
	}
	if raw := os.Getenv("IGUNFOLLOW_COOLDOWN_ON_FAILURE"); raw != "" {
		c.Cooldown.OnFailure = strings.ToLower(raw) == "true"
	}

	// Rate limiting
	if rpm := os.Getenv("IGUNFOLLOW_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid IGUNFOLLOW_REQUESTS_PER_MINUTE %q: %w", rpm, err)
		}
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if addr := os.Getenv("IGUNFOLLOW_METRICS_ADDR"); addr != "" {
		c.Metrics.Address = addr
	}

	// Logging level
	if logLevel := os.Getenv("IGUNFOLLOW_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"igunfollow.yaml",
		"igunfollow.yml",
		".igunfollow.yaml",
		".igunfollow.yml",
		filepath.Join(home, ".config", "igunfollow", "config.yaml"),
		filepath.Join(home, ".config", "igunfollow", "config.yml"),
		filepath.Join(home, ".igunfollow.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Missing Instagram
// credentials are not an error here: the command reports them per invocation.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.PageSize <= 0 || c.Instagram.PageSize > 200 {
		errs = append(errs, errors.New("instagram page size must be between 1 and 200"))
	}
	if c.Instagram.PageDelay < 0 {
		errs = append(errs, errors.New("instagram page delay cannot be negative"))
	}
	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}

	if c.Cooldown.Duration < 0 {
		errs = append(errs, errors.New("cooldown duration cannot be negative"))
	}

	if c.Unfollow.FetchAttempts < 1 {
		errs = append(errs, errors.New("fetch attempts must be at least 1"))
	}
	if c.Unfollow.FetchRetryDelay < 0 || c.Unfollow.SettleDelay < 0 || c.Unfollow.FailureDelay < 0 {
		errs = append(errs, errors.New("unfollow delays cannot be negative"))
	}
	if c.Unfollow.MinDelay < 0 || c.Unfollow.MaxDelay < c.Unfollow.MinDelay {
		errs = append(errs, errors.New("unfollow max delay must not be below min delay"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	if c.Workers.PoolSize <= 0 {
		errs = append(errs, errors.New("worker pool size must be positive"))
	}
	if c.Workers.QueueSize < 0 {
		errs = append(errs, errors.New("worker queue size cannot be negative"))
	}

	if c.Discord.CommandName == "" {
		errs = append(errs, errors.New("discord command name is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if guildID, ok := flags["guild-id"].(string); ok && guildID != "" {
		c.Discord.GuildID = guildID
	}
	if addr, ok := flags["metrics-addr"].(string); ok && addr != "" {
		c.Metrics.Address = addr
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if cooldown, ok := flags["cooldown"].(time.Duration); ok && cooldown > 0 {
		c.Cooldown.Duration = cooldown
	}
}

// Redacted returns a copy of the configuration with secrets masked
func (c *Config) Redacted() *Config {
	out := *c
	out.Instagram.Password = mask(c.Instagram.Password)
	out.Discord.Token = mask(c.Discord.Token)
	return &out
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igunfollow.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
