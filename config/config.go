// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/voxmeter/domain/eligibility"
	"github.com/artpar/voxmeter/domain/money"
	"github.com/artpar/voxmeter/domain/resource"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Speech   SpeechConfig   `yaml:"speech"`
	Quotas   QuotasConfig   `yaml:"quotas"`
	Rates    RatesConfig    `yaml:"rates"`
	VIPUsers []int64        `yaml:"vip_users"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// SpeechConfig configures the speech provider.
type SpeechConfig struct {
	APIKey   string `yaml:"api_key"`
	TTSModel string `yaml:"tts_model"`
	TTSVoice string `yaml:"tts_voice"`
	STTModel string `yaml:"stt_model"`
}

// QuotasConfig configures quota policy. Mode selects the accounting
// variant for the whole deployment.
type QuotasConfig struct {
	Mode     string `yaml:"mode"` // "quantity" or "cost"
	FailOpen bool   `yaml:"fail_open"`

	Trial      TrialConfig      `yaml:"trial"`
	SharedPool SharedPoolConfig `yaml:"shared_pool"`
}

// TrialConfig configures the free trial granted at registration.
type TrialConfig struct {
	Days       int   `yaml:"days"`
	TTSChars   int64 `yaml:"tts_chars"`
	STTSeconds int64 `yaml:"stt_seconds"`
}

// SharedPoolConfig configures the optional global monthly budget.
type SharedPoolConfig struct {
	Enabled     bool  `yaml:"enabled"`
	BudgetCents int64 `yaml:"budget_cents"` // monthly, in cents
}

// RatesConfig configures the cost rate table. Rates are raw provider
// rates in micro-dollars per unit; markup is an integer percentage
// applied on top.
type RatesConfig struct {
	TTSMicrosPerChar   int64 `yaml:"tts_micros_per_char"`
	STTMicrosPerSecond int64 `yaml:"stt_micros_per_second"`
	MarkupPct          int64 `yaml:"markup_pct"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "voxmeter.db",
		},
		Speech: SpeechConfig{
			TTSModel: "tts-1",
			TTSVoice: "nova",
			STTModel: "whisper-1",
		},
		Quotas: QuotasConfig{
			Mode: string(eligibility.ModeQuantity),
			Trial: TrialConfig{
				Days:       7,
				TTSChars:   10_000,
				STTSeconds: 3_600,
			},
			SharedPool: SharedPoolConfig{
				BudgetCents: 300,
			},
		},
		Rates: RatesConfig{
			TTSMicrosPerChar:   15,  // $15 per 1M characters
			STTMicrosPerSecond: 100, // $0.006 per minute
			MarkupPct:          100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from a YAML file, applies VOXMETER_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv builds configuration from defaults plus environment
// overrides only (no config file).
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasEnvConfig reports whether any VOXMETER_* variable is set.
func HasEnvConfig() bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "VOXMETER_") {
			return true
		}
	}
	return false
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VOXMETER_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("VOXMETER_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("VOXMETER_SPEECH_API_KEY"); v != "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv("VOXMETER_QUOTA_MODE"); v != "" {
		c.Quotas.Mode = v
	}
	if v := os.Getenv("VOXMETER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VOXMETER_VIP_USERS"); v != "" {
		var vips []int64
		for _, field := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err == nil {
				vips = append(vips, id)
			}
		}
		if len(vips) > 0 {
			c.VIPUsers = vips
		}
	}
}

// Validate checks the configuration for startup-fatal problems. A
// malformed quota policy or rate table is a configuration error, not a
// per-request condition.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if !eligibility.Mode(c.Quotas.Mode).Valid() {
		return fmt.Errorf("invalid quota mode %q (want %q or %q)",
			c.Quotas.Mode, eligibility.ModeQuantity, eligibility.ModeCost)
	}
	if c.Quotas.Trial.Days <= 0 {
		return fmt.Errorf("trial days must be positive, got %d", c.Quotas.Trial.Days)
	}
	if c.Quotas.SharedPool.Enabled && c.Quotas.SharedPool.BudgetCents <= 0 {
		return fmt.Errorf("shared pool budget must be positive, got %d", c.Quotas.SharedPool.BudgetCents)
	}
	// The pool carries only a monetary budget; quantity mode would have
	// nothing to enforce against it.
	if c.Quotas.SharedPool.Enabled && eligibility.Mode(c.Quotas.Mode) != eligibility.ModeCost {
		return fmt.Errorf("shared pool requires quota mode %q, got %q", eligibility.ModeCost, c.Quotas.Mode)
	}
	if _, err := c.RateTable(); err != nil {
		return err
	}
	return nil
}

// RateTable builds the cost rate table from the configured rates.
func (c *Config) RateTable() (money.RateTable, error) {
	return money.NewRateTable(map[resource.Kind]money.Amount{
		resource.TTSChars:   money.Amount(c.Rates.TTSMicrosPerChar),
		resource.STTSeconds: money.Amount(c.Rates.STTMicrosPerSecond),
	}, c.Rates.MarkupPct)
}

// Mode returns the configured quota accounting mode.
func (c *Config) Mode() eligibility.Mode {
	return eligibility.Mode(c.Quotas.Mode)
}

// SharedPoolBudget returns the monthly shared-pool budget.
func (c *Config) SharedPoolBudget() money.Amount {
	return money.FromCents(c.Quotas.SharedPool.BudgetCents)
}
