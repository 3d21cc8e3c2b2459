// Package config loads the PlantKeeper configuration: a YAML file with
// environment-variable expansion, preceded by best-effort .env loading so
// mail credentials stay out of the config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/plantkeeper/internal/errors"
	"git.home.luguber.info/inful/plantkeeper/internal/notify"
	"git.home.luguber.info/inful/plantkeeper/internal/retry"
)

// Config represents the application configuration.
type Config struct {
	Database  DatabaseConfig    `yaml:"database"`
	Reminders ReminderConfig    `yaml:"reminders"`
	SMTP      notify.SMTPConfig `yaml:"smtp"`
	NATS      notify.NATSConfig `yaml:"nats"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ReminderConfig drives the daily dispatch sweep.
type ReminderConfig struct {
	// SweepTime is the daily sweep trigger as HH:MM wall-clock time.
	SweepTime string `yaml:"sweep_time"`
	// Timezone is the IANA zone the sweep time and the same-day dedupe
	// guard are evaluated in.
	Timezone string `yaml:"timezone"`
	// SendTimeout bounds a single notification attempt ("15s", "1m").
	SendTimeout string `yaml:"send_timeout"`
	// MaxConcurrentSends bounds per-plant parallelism within a sweep.
	MaxConcurrentSends int `yaml:"max_concurrent_sends"`
	// SendRetries is the number of extra attempts after a failed send.
	SendRetries int `yaml:"send_retries"`
	// RetryBackoff selects the backoff curve: fixed, linear or exponential.
	RetryBackoff string `yaml:"retry_backoff"`
	// RetryDelay is the base backoff delay ("1s").
	RetryDelay string `yaml:"retry_delay"`
	// RetryMaxDelay caps the backoff growth ("30s").
	RetryMaxDelay string `yaml:"retry_max_delay"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env/.env.local if present; existing env vars win.
	_ = godotenv.Load(".env.local", ".env")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "plantkeeper.db"
	}
	if c.Reminders.SweepTime == "" {
		c.Reminders.SweepTime = "08:00"
	}
	if c.Reminders.Timezone == "" {
		c.Reminders.Timezone = "UTC"
	}
	if c.Reminders.SendTimeout == "" {
		c.Reminders.SendTimeout = "15s"
	}
	if c.Reminders.MaxConcurrentSends == 0 {
		c.Reminders.MaxConcurrentSends = 4
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9190"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(LogLevelInfo)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = string(LogFormatText)
	}
}

// Validate checks the fields that would otherwise fail at daemon start.
func (c *Config) Validate() error {
	if _, _, err := c.Reminders.SweepClock(); err != nil {
		return err
	}
	if _, err := c.Reminders.Location(); err != nil {
		return err
	}
	if _, err := c.Reminders.SendTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Reminders.RetryPolicy(); err != nil {
		return err
	}
	if c.Reminders.MaxConcurrentSends < 1 {
		return errors.ConfigError("reminders.max_concurrent_sends must be at least 1")
	}
	return nil
}

// SweepClock parses the configured sweep time-of-day.
func (r ReminderConfig) SweepClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", r.SweepTime)
	if err != nil {
		return 0, 0, errors.ConfigError(fmt.Sprintf("reminders.sweep_time %q is not a valid HH:MM time", r.SweepTime))
	}
	return t.Hour(), t.Minute(), nil
}

// SendTimeoutDuration parses the per-send timeout.
func (r ReminderConfig) SendTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(r.SendTimeout)
	if err != nil || d <= 0 {
		return 0, errors.ConfigError(fmt.Sprintf("reminders.send_timeout %q is not a valid positive duration", r.SendTimeout))
	}
	return d, nil
}

// RetryPolicy builds the send backoff policy. Unset fields keep the policy
// defaults (linear, 1s base, 30s cap, 2 retries).
func (r ReminderConfig) RetryPolicy() (retry.Policy, error) {
	var initial, maxDelay time.Duration
	if r.RetryDelay != "" {
		d, err := time.ParseDuration(r.RetryDelay)
		if err != nil || d <= 0 {
			return retry.Policy{}, errors.ConfigError(fmt.Sprintf("reminders.retry_delay %q is not a valid positive duration", r.RetryDelay))
		}
		initial = d
	}
	if r.RetryMaxDelay != "" {
		d, err := time.ParseDuration(r.RetryMaxDelay)
		if err != nil || d <= 0 {
			return retry.Policy{}, errors.ConfigError(fmt.Sprintf("reminders.retry_max_delay %q is not a valid positive duration", r.RetryMaxDelay))
		}
		maxDelay = d
	}
	return retry.NewPolicy(r.RetryBackoff, initial, maxDelay, r.SendRetries), nil
}

// Location resolves the configured timezone.
func (r ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("reminders.timezone %q is not a valid IANA zone", r.Timezone))
	}
	return loc, nil
}
