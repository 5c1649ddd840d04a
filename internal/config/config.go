// ABOUTME: Configuration loading and parsing for rail-scout
// ABOUTME: YAML or TOML files with environment variable expansion, durations and defaults

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load.
const (
	DefaultRetryBudget     = 5
	DefaultPollAttempts    = 5
	DefaultPollInterval    = 2 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultCompartmentType = "купе"
	DefaultStorageDriver   = "badger"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Config represents the complete rail-scout configuration
type Config struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
	RZD      RZDConfig      `yaml:"rzd" toml:"rzd"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// TelegramConfig holds Bot API settings
type TelegramConfig struct {
	Token        string  `yaml:"token" toml:"token"`
	APIURL       string  `yaml:"api_url" toml:"api_url"`
	AllowedChats []int64 `yaml:"allowed_chats" toml:"allowed_chats"`
}

// RZDConfig holds upstream endpoint and retry settings
type RZDConfig struct {
	SuggestURL      string   `yaml:"suggest_url" toml:"suggest_url"`
	PassURL         string   `yaml:"pass_url" toml:"pass_url"`
	Language        string   `yaml:"language" toml:"language"`
	RetryBudget     *int     `yaml:"retry_budget" toml:"retry_budget"` // nil means default; 0 disables retries
	PollAttempts    int      `yaml:"poll_attempts" toml:"poll_attempts"`
	UserAgents      []string `yaml:"user_agents" toml:"user_agents"`
	CompartmentType string   `yaml:"compartment_type" toml:"compartment_type"`

	PollInterval   time.Duration `yaml:"-" toml:"-"`
	RequestTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	PollIntervalRaw   string `yaml:"poll_interval" toml:"poll_interval"`
	RequestTimeoutRaw string `yaml:"request_timeout" toml:"request_timeout"`
}

// Retries returns the configured retry budget.
func (r RZDConfig) Retries() int {
	if r.RetryBudget == nil {
		return DefaultRetryBudget
	}
	return *r.RetryBudget
}

// StorageConfig selects the subscription store
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // badger, sqlite or memory
	Path   string `yaml:"path" toml:"path"`
}

// ServerConfig holds the admin HTTP address; empty disables the API
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(string(data), formatFor(path))
}

// Format is a config file syntax.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes configuration text, then applies defaults and validates.
func Parse(text string, format Format) (*Config, error) {
	expanded := expandEnvVars(text)

	var cfg Config
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.RZD.PollAttempts == 0 {
		c.RZD.PollAttempts = DefaultPollAttempts
	}
	if c.RZD.PollIntervalRaw == "" {
		c.RZD.PollInterval = DefaultPollInterval
	}
	if c.RZD.RequestTimeout == 0 {
		c.RZD.RequestTimeout = DefaultRequestTimeout
	}
	if c.RZD.CompartmentType == "" {
		c.RZD.CompartmentType = DefaultCompartmentType
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.Path == "" && c.Storage.Driver != "memory" {
		c.Storage.Path = DefaultStoragePath(c.Storage.Driver)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that configuration values are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	endpoints := []struct{ name, raw string }{
		{"rzd.suggest_url", c.RZD.SuggestURL},
		{"rzd.pass_url", c.RZD.PassURL},
	}
	for _, ep := range endpoints {
		if ep.raw == "" {
			continue
		}
		u, err := url.Parse(ep.raw)
		if err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", ep.name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must use http or https scheme", ep.name)
		}
	}

	if c.RZD.RetryBudget != nil && *c.RZD.RetryBudget < 0 {
		return fmt.Errorf("rzd.retry_budget must not be negative")
	}
	if c.RZD.PollAttempts < 0 {
		return fmt.Errorf("rzd.poll_attempts must be positive")
	}
	if c.RZD.PollInterval < 0 || c.RZD.RequestTimeout < 0 {
		return fmt.Errorf("rzd durations must not be negative")
	}

	switch c.Storage.Driver {
	case "badger", "sqlite", "memory":
	default:
		return fmt.Errorf("storage.driver must be badger, sqlite or memory, got %q", c.Storage.Driver)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ValidateBot checks the settings only the bot needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.RZD.PollIntervalRaw != "" {
		cfg.RZD.PollInterval, err = time.ParseDuration(cfg.RZD.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.RZD.PollIntervalRaw, err)
		}
	}

	if cfg.RZD.RequestTimeoutRaw != "" {
		cfg.RZD.RequestTimeout, err = time.ParseDuration(cfg.RZD.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.RZD.RequestTimeoutRaw, err)
		}
	}

	return nil
}
