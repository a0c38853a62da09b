package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "PAPERTRADER_"

// Config represents the complete service configuration
type Config struct {
	Account   AccountConfig  `json:"account" yaml:"account"`
	Market    MarketConfig   `json:"market" yaml:"market"`
	Journal   JournalConfig  `json:"journal" yaml:"journal"`
	Server    ServerConfig   `json:"server" yaml:"server"`
	Snapshots SnapshotConfig `json:"snapshots" yaml:"snapshots"`
	Log       LogConfig      `json:"log" yaml:"log"`
}

// AccountConfig sets up newly opened accounts
type AccountConfig struct {
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	Currency       string  `json:"currency" yaml:"currency"`
}

// MarketConfig points at the quote provider
type MarketConfig struct {
	Provider           string `json:"provider" yaml:"provider"`
	BaseURL            string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	SearchURL          string `json:"search_url,omitempty" yaml:"search_url,omitempty"`
	Timeout            string `json:"timeout" yaml:"timeout"`     // e.g. "10s"
	CacheTTL           string `json:"cache_ttl" yaml:"cache_ttl"` // "0s" disables caching
	SummaryRetries     int    `json:"summary_retries" yaml:"summary_retries"`
	SummaryConcurrency int    `json:"summary_concurrency" yaml:"summary_concurrency"`
}

// TimeoutDuration parses Timeout.
func (m MarketConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(m.Timeout)
}

// CacheTTLDuration parses CacheTTL.
func (m MarketConfig) CacheTTLDuration() (time.Duration, error) {
	return parseDuration(m.CacheTTL)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// JournalConfig selects where ledger state lives
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "sqlite" or "memory"
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	HistoryLimit int    `json:"history_limit" yaml:"history_limit"`
}

// ServerConfig contains HTTP API parameters
type ServerConfig struct {
	Addr        string   `json:"addr" yaml:"addr"`
	DevMode     bool     `json:"dev_mode" yaml:"dev_mode"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// SnapshotConfig schedules equity snapshots. An empty schedule disables them.
type SnapshotConfig struct {
	Schedule string `json:"schedule" yaml:"schedule"` // cron with seconds field
}

// LogConfig contains logging parameters
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// Load reads path (if non-empty) over the defaults, loads an optional .env
// file, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}

	// a missing .env is normal
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (JSON or YAML). Keys absent
// from the file keep their default values.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays PAPERTRADER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	setString(&c.Journal.DBPath, "DB_PATH")
	setString(&c.Journal.Type, "JOURNAL_TYPE")
	setString(&c.Server.Addr, "ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Market.BaseURL, "MARKET_BASE_URL")
	setString(&c.Market.SearchURL, "MARKET_SEARCH_URL")
	setString(&c.Snapshots.Schedule, "SNAPSHOT_SCHEDULE")

	if v, ok := os.LookupEnv(EnvPrefix + "INITIAL_BALANCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sINITIAL_BALANCE: %w", EnvPrefix, err)
		}
		c.Account.InitialBalance = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.InitialBalance <= 0 {
		return fmt.Errorf("account.initial_balance must be positive")
	}
	if c.Market.Provider != "yahoo" {
		return fmt.Errorf("market.provider must be 'yahoo'")
	}
	if d, err := c.Market.TimeoutDuration(); err != nil || d < 0 {
		return fmt.Errorf("market.timeout must be a non-negative duration")
	}
	if d, err := c.Market.CacheTTLDuration(); err != nil || d < 0 {
		return fmt.Errorf("market.cache_ttl must be a non-negative duration")
	}
	if c.Market.SummaryRetries < 0 {
		return fmt.Errorf("market.summary_retries must not be negative")
	}
	if c.Market.SummaryConcurrency < 0 {
		return fmt.Errorf("market.summary_concurrency must not be negative")
	}
	if c.Journal.Type != "sqlite" && c.Journal.Type != "memory" {
		return fmt.Errorf("journal.type must be 'sqlite' or 'memory'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Journal.HistoryLimit < 0 {
		return fmt.Errorf("journal.history_limit must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Snapshots.Schedule != "" {
		if _, err := cron.NewParser(CronFields).Parse(c.Snapshots.Schedule); err != nil {
			return fmt.Errorf("snapshots.schedule: %w", err)
		}
	}
	return nil
}

// CronFields is the schedule syntax: a seconds field followed by the
// standard five, plus descriptors such as @hourly.
const CronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialBalance: 10000,
			Currency:       "USD",
		},
		Market: MarketConfig{
			Provider:           "yahoo",
			Timeout:            "10s",
			CacheTTL:           "15s",
			SummaryRetries:     1,
			SummaryConcurrency: 4,
		},
		Journal: JournalConfig{
			Type:         "sqlite",
			DBPath:       "./papertrader.db",
			HistoryLimit: 50,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Snapshots: SnapshotConfig{
			Schedule: "0 0 21 * * 1-5",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
