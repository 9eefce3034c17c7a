package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// FeedSource is one RSS feed the ingestor watches
type FeedSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Config holds application configuration
type Config struct {
	// Server
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Capabilities
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	SerperAPIKey string `yaml:"serper_api_key"`

	// Pipeline tuning
	MaxCitationsPerClaim int     `yaml:"max_citations_per_claim"`
	ScrapeWorkers        int     `yaml:"scrape_workers"`
	ScrapeTimeoutSeconds int     `yaml:"scrape_timeout_seconds"`
	SearchRatePerSecond  float64 `yaml:"search_rate_per_second"`
	ScrapeRatePerSecond  float64 `yaml:"scrape_rate_per_second"`
	UserAgentString      string  `yaml:"user_agent_string"`

	// Storage
	DataDir    string `yaml:"data_dir"`
	ResultsDir string `yaml:"results_dir"`
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`

	// Ingestion
	EnableIngest bool         `yaml:"enable_ingest"`
	IngestCron   string       `yaml:"ingest_cron"`
	Feeds        []FeedSource `yaml:"feeds"`

	// Discord notifications
	EnableDiscord    bool   `yaml:"enable_discord"`
	DiscordToken     string `yaml:"discord_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// cfg is the global configuration, set once at startup
var cfg *Config

// DefaultConfig returns a config with sane defaults applied
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:           ":8000",
		AllowedOrigins:       []string{"http://localhost:3000", "http://localhost:3001", "http://127.0.0.1:3000"},
		OpenAIModel:          "gpt-3.5-turbo",
		MaxCitationsPerClaim: 3,
		ScrapeWorkers:        3,
		ScrapeTimeoutSeconds: 15,
		SearchRatePerSecond:  1,
		ScrapeRatePerSecond:  2,
		UserAgentString:      "RealityCheck/1.0 (+https://github.com/realitycheck-ai/realitycheck)",
		DataDir:              "data",
		ResultsDir:           "data/results",
		LogPath:              "data/logs/realitycheck.log",
		LogLevel:             "info",
		IngestCron:           "@every 30m",
	}
}

// LoadConfig reads the YAML config file, then applies environment overrides
// for secrets so keys never need to live in the file.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewConfigError(ErrConfigLoad, fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, NewConfigError(ErrConfigLoad, "failed to parse config file", err)
		}
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnvOverrides pulls secrets from the environment. Environment values
// win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIAPIKey = v
	}
	if v := os.Getenv("SERPER_DEV_KEY"); v != "" {
		c.SerperAPIKey = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.DiscordToken = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
}

// Validate checks the configuration for problems that should stop startup
func (c *Config) Validate() error {
	if c.MaxCitationsPerClaim < 1 {
		return NewConfigError(ErrConfigValidation, "max_citations_per_claim must be at least 1", nil)
	}
	if c.ScrapeWorkers < 1 {
		return NewConfigError(ErrConfigValidation, "scrape_workers must be at least 1", nil)
	}
	if c.EnableDiscord && (c.DiscordToken == "" || c.DiscordChannelID == "") {
		return NewConfigError(ErrConfigValidation, "discord enabled but token or channel missing", nil)
	}
	if c.EnableIngest && len(c.Feeds) == 0 {
		return NewConfigError(ErrConfigValidation, "ingestion enabled but no feeds configured", nil)
	}
	return nil
}

// ScrapeTimeout returns the per-attempt scrape timeout as a duration
func (c *Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.ScrapeTimeoutSeconds) * time.Second
}
