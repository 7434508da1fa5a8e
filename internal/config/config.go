// Package config loads FinChat configuration from YAML files with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Market  MarketConfig  `mapstructure:"market"  yaml:"market"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Agent   AgentConfig   `mapstructure:"agent"   yaml:"agent"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	OpenAIKey       string  `mapstructure:"openai_key"        yaml:"openai_key"`
	BaseURL         string  `mapstructure:"base_url"          yaml:"base_url"`
	Model           string  `mapstructure:"model"             yaml:"model"`
	Temperature     float64 `mapstructure:"temperature"       yaml:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
}

// MarketConfig holds market data provider settings.
type MarketConfig struct {
	PolygonKey    string `mapstructure:"polygon_key"     yaml:"polygon_key"`
	BaseURL       string `mapstructure:"base_url"        yaml:"base_url"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_sec"   yaml:"cache_ttl_sec"`
	RatePerMinute int    `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
}

// NewsConfig holds headline feed settings.
type NewsConfig struct {
	Feeds []string `mapstructure:"feeds" yaml:"feeds"`
}

// AgentConfig holds analyst behavior settings.
type AgentConfig struct {
	MaxRounds  int `mapstructure:"max_rounds"  yaml:"max_rounds"`
	MemorySize int `mapstructure:"memory_size" yaml:"memory_size"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.finchat/config.yaml (home directory)
//  3. /etc/finchat/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINCHAT_<SECTION>_<KEY>, e.g. FINCHAT_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".finchat"))
	v.AddConfigPath("/etc/finchat")

	v.SetEnvPrefix("FINCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults plus env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("FINCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4.1")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_output_tokens", 4096)

	v.SetDefault("market.base_url", "https://api.polygon.io")
	v.SetDefault("market.cache_ttl_sec", 60)
	v.SetDefault("market.rate_per_minute", 5)

	v.SetDefault("agent.max_rounds", 8)
	v.SetDefault("agent.memory_size", 40)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from the environment.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("FINCHAT_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("FINCHAT_MARKET_POLYGON_KEY"); key != "" {
		cfg.Market.PolygonKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
