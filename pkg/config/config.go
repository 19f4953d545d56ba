// Package config loads promptdeck configuration from defaults, an optional
// YAML file and PROMPTDECK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sternrassler/promptdeck/pkg/logging"
)

// EnvPrefix is the prefix of environment overrides, e.g. PROMPTDECK_SERVER_ADDR.
const EnvPrefix = "PROMPTDECK"

// Config is the complete promptdeck configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Client    ClientConfig    `mapstructure:"client"`
	Pager     PagerConfig     `mapstructure:"pager"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig configures `promptdeck serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Tokens          []TokenConfig `mapstructure:"tokens"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TokenConfig grants a bearer token access to the records of Owner. Tokens
// live in a list since viper lower-cases map keys.
type TokenConfig struct {
	Token string `mapstructure:"token"`
	Owner string `mapstructure:"owner"`
}

// TokenMap returns the token to owner lookup used by the server.
func (s ServerConfig) TokenMap() map[string]string {
	m := make(map[string]string, len(s.Tokens))
	for _, t := range s.Tokens {
		m[t.Token] = t.Owner
	}
	return m
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig is shared by the client page cache and the server rate limiter.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig is the per-owner request budget of the server.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// ClientConfig points the CLI commands at a running server.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
	Cache   bool          `mapstructure:"cache"`
}

// PagerConfig tunes the pagination controllers.
type PagerConfig struct {
	PageLimit int           `mapstructure:"page_limit"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

// OpenAIConfig backs the optimize-prompt endpoint. An empty APIKey leaves
// it disabled.
type OpenAIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "promptdeck.db")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.token", "${PROMPTDECK_TOKEN}")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.cache", false)

	v.SetDefault("pager.page_limit", 10)
	v.SetDefault("pager.debounce", 300*time.Millisecond)

	v.SetDefault("openai.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.max_retries", 2)
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// New returns a viper instance with defaults and environment bindings. When
// cfgFile is empty, config.yaml is searched in . and $HOME/.promptdeck; a
// missing file is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.promptdeck")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration; see New for the lookup rules.
func Load(cfgFile string) (*Config, error) {
	v, err := New(cfgFile)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes, resolves and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands ${ENV_VAR} references in secrets.
func (c *Config) resolve() {
	c.Client.Token = ResolveEnvVars(c.Client.Token)
	c.Redis.Password = ResolveEnvVars(c.Redis.Password)
	c.OpenAI.APIKey = ResolveEnvVars(c.OpenAI.APIKey)

	tokens := c.Server.Tokens[:0]
	for _, t := range c.Server.Tokens {
		t.Token = ResolveEnvVars(t.Token)
		if t.Token == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	c.Server.Tokens = tokens
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Pager.PageLimit < 1 || c.Pager.PageLimit > 100:
		return fmt.Errorf("pager.page_limit must be between 1 and 100, got %d", c.Pager.PageLimit)
	case c.Pager.Debounce < 0:
		return fmt.Errorf("pager.debounce must not be negative, got %s", c.Pager.Debounce)
	case c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute < 1:
		return fmt.Errorf("rate_limit.requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	case c.RateLimit.Enabled && c.RateLimit.Burst < 1:
		return fmt.Errorf("rate_limit.burst must be positive, got %d", c.RateLimit.Burst)
	case c.OpenAI.MaxRetries < 0:
		return fmt.Errorf("openai.max_retries must not be negative, got %d", c.OpenAI.MaxRetries)
	case c.Database.Path == "":
		return errors.New("database.path is required")
	}
	for i, t := range c.Server.Tokens {
		if t.Owner == "" {
			return fmt.Errorf("server.tokens[%d]: owner is required", i)
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Logging converts the log settings for logging.Setup.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.Log.Pretty
	return cfg
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string. Unset variables
// expand to the empty string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// WriteDefault writes a config file holding the defaults to path.
func WriteDefault(path string) error {
	v := viper.New()
	SetDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
