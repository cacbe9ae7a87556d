// Package common provides shared utilities for fundwatch
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fundwatch
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Provider ProviderConfig `toml:"provider"`
	Refresh  RefreshConfig  `toml:"refresh"`
	Calendar CalendarConfig `toml:"calendar"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the path for the file-based store
type StorageConfig struct {
	Path string `toml:"path"`
}

// ProviderConfig holds fund-data provider client configuration
type ProviderConfig struct {
	FundBaseURL   string `toml:"fund_base_url"`
	IndexBaseURL  string `toml:"index_base_url"`
	SearchBaseURL string `toml:"search_base_url"`
	RateLimit     int    `toml:"rate_limit"`
	Timeout       string `toml:"timeout"`
}

// GetTimeout parses and returns the provider timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// RefreshConfig holds the live-update cadence.
// Index quotes refresh at FastIndexInterval while the market is trading,
// falling back to FundInterval otherwise.
type RefreshConfig struct {
	FundInterval      string `toml:"fund_interval"`
	FastIndexInterval string `toml:"fast_index_interval"`
}

// GetFundInterval parses the fund refresh period
func (c *RefreshConfig) GetFundInterval() time.Duration {
	d, err := time.ParseDuration(c.FundInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetFastIndexInterval parses the in-session index refresh period
func (c *RefreshConfig) GetFastIndexInterval() time.Duration {
	d, err := time.ParseDuration(c.FastIndexInterval)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CalendarConfig holds the market-calendar configuration
type CalendarConfig struct {
	HolidayFile string `toml:"holiday_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8086,
		},
		Storage: StorageConfig{
			Path: "data",
		},
		Provider: ProviderConfig{
			FundBaseURL:   "https://fundmobapi.eastmoney.com",
			IndexBaseURL:  "https://push2.eastmoney.com",
			SearchBaseURL: "https://fundsuggest.eastmoney.com",
			RateLimit:     5,
			Timeout:       "15s",
		},
		Refresh: RefreshConfig{
			FundInterval:      "60s",
			FastIndexInterval: "10s",
		},
		Calendar: CalendarConfig{
			HolidayFile: "data/holiday.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if host := os.Getenv("FUNDWATCH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FUNDWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FUNDWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FUNDWATCH_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if u := os.Getenv("FUNDWATCH_FUND_BASE_URL"); u != "" {
		config.Provider.FundBaseURL = u
	}

	if u := os.Getenv("FUNDWATCH_INDEX_BASE_URL"); u != "" {
		config.Provider.IndexBaseURL = u
	}

	if u := os.Getenv("FUNDWATCH_SEARCH_BASE_URL"); u != "" {
		config.Provider.SearchBaseURL = u
	}
}
